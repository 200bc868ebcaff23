package audio

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultFormat is assumed when neither the filename nor the content type
// identify the container. Browser recorders upload webm.
const DefaultFormat = "webm"

var extFormats = map[string]string{
	".webm": "webm",
	".ogg":  "ogg",
	".mp3":  "mp3",
	".mp4":  "mp4",
	".m4a":  "m4a",
	".wav":  "wav",
}

var mimeFormats = map[string]string{
	"audio/webm":    "webm",
	"video/webm":    "webm",
	"audio/ogg":     "ogg",
	"audio/mpeg":    "mp3",
	"audio/mp3":     "mp3",
	"audio/mp4":     "mp4",
	"video/mp4":     "mp4",
	"audio/x-m4a":   "m4a",
	"audio/m4a":     "m4a",
	"audio/wav":     "wav",
	"audio/x-wav":   "wav",
	"audio/wave":    "wav",
	"audio/vnd.wav": "wav",
}

// ResolveFormat picks the container format from the upload's filename
// extension. Without an extension the content type decides. Anything
// unrecognised is treated as DefaultFormat.
func ResolveFormat(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if f, ok := extFormats[ext]; ok {
			return f
		}
		return DefaultFormat
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if f, ok := mimeFormats[strings.ToLower(mt)]; ok {
				return f
			}
		}
	}
	return DefaultFormat
}

// IsAudioContentType reports whether an upload declares an audio media type.
func IsAudioContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "audio/")
}
