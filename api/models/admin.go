package models

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminResponse struct {
	Email string `json:"email"`
}

type SweepStatusResponse struct {
	Armed    bool   `json:"armed"`
	NextRun  string `json:"nextRun,omitempty"`
	Timezone string `json:"timezone"`
}

type ResetResponse struct {
	Message string `json:"message"`
	Reset   int    `json:"reset"`
}
