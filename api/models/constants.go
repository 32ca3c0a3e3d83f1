package models

// Alphabet is used for submission id suffixes.
var Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	SubmissionIDPrefix = "submission_"
	SubmissionIDLength = 12
	// MaxImageBytes caps uploads well below the hosting API file limit.
	MaxImageBytes = 10 << 20
)

var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}
