// Package upload checks image payloads before any model call is made.
package upload

import (
	"regexp"
	"strconv"
	"strings"
)

const DefaultMaxBytes = 4 * 1024 * 1024

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonRequiredMissing   Reason = "required_fields_missing"
	ReasonInvalidEncoding   Reason = "invalid_encoding"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonTooLarge          Reason = "size_exceeds_limit"
)

type Result struct {
	Valid   bool
	Reason  Reason
	Message string
}

var (
	dataURLPrefix = regexp.MustCompile(`^data:[^;,]+;base64,`)
	base64Alpha   = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
	imageMIME     = regexp.MustCompile(`(?i)^image/(jpe?g|png|gif|bmp|webp)$`)
)

// StripDataURL removes a data-URL header and all whitespace.
func StripDataURL(encoded string) string {
	s := dataURLPrefix.ReplaceAllString(strings.TrimSpace(encoded), "")
	return strings.Join(strings.Fields(s), "")
}

// Validate applies the upload rules in order and reports the first failure.
// maxBytes <= 0 means DefaultMaxBytes.
func Validate(encoded, mimeType string, maxBytes int) Result {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if strings.TrimSpace(encoded) == "" || strings.TrimSpace(mimeType) == "" {
		return fail(ReasonRequiredMissing, "imageBase64 and mimeType are required")
	}
	data := StripDataURL(encoded)
	if !base64Alpha.MatchString(data) {
		return fail(ReasonInvalidEncoding, "Invalid base64 image data")
	}
	if !imageMIME.MatchString(strings.TrimSpace(mimeType)) {
		return fail(ReasonUnsupportedFormat, "Unsupported format. Please upload an image (JPEG, PNG, GIF, BMP, WebP) or a PDF.")
	}
	if EstimatedSize(data) > maxBytes {
		return fail(ReasonTooLarge, "Image size exceeds "+FormatLimit(maxBytes)+" limit. Please use a smaller image.")
	}
	return Result{Valid: true}
}

// FormatLimit renders a byte limit for user-facing messages, e.g. "4MB".
func FormatLimit(n int) string {
	const mb = 1 << 20
	switch {
	case n >= mb && n%mb == 0:
		return strconv.Itoa(n/mb) + "MB"
	case n >= mb:
		return strconv.FormatFloat(float64(n)/mb, 'f', 1, 64) + "MB"
	case n >= 1024 && n%1024 == 0:
		return strconv.Itoa(n/1024) + "KB"
	}
	return strconv.Itoa(n) + " bytes"
}

// EstimatedSize is the decoded length estimate of a stripped base64 payload.
func EstimatedSize(stripped string) int {
	return len(stripped) * 3 / 4
}

func fail(r Reason, msg string) Result {
	return Result{Reason: r, Message: msg}
}
