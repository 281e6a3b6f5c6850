package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AllowedExtensions lists the image extensions accepted for upload.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
	"webp": true,
}

// encodableExtensions are the formats the annotator can write back out.
var encodableExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceFiles = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// Extension returns the lower-cased text after the last dot, or "" if there is none.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// AllowedFile reports whether filename carries one of the accepted image extensions.
func AllowedFile(filename string) bool {
	return AllowedExtensions[Extension(filename)]
}

// SecureFilename reduces a client-supplied name to a flat ASCII name that is
// safe to join onto a directory. The result may be empty.
func SecureFilename(filename string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, filename)
	if err != nil {
		ascii = ""
	}

	ascii = strings.NewReplacer("/", " ", "\\", " ").Replace(ascii)
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeChars.ReplaceAllString(ascii, "")
	ascii = strings.Trim(ascii, "._")

	if ascii != "" && windowsDeviceFiles[strings.ToUpper(strings.Split(ascii, ".")[0])] {
		ascii = "_" + ascii
	}
	return ascii
}

// StorageName sanitizes filename and makes sure the result still carries the
// allowed extension of the original. Names that sanitize away entirely, or
// lose their extension, become "upload.<ext>".
func StorageName(filename string) string {
	ext := Extension(filename)
	safe := SecureFilename(filename)
	if safe == "" || Extension(safe) != ext || strings.TrimSuffix(safe, "."+Extension(safe)) == "" {
		return "upload." + ext
	}
	return safe
}

// ResultName derives the annotated image name from a stored upload name.
// Formats the annotator cannot encode are written as PNG.
func ResultName(stored string) string {
	name := "result_" + stored
	if !encodableExtensions[Extension(stored)] {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}
	return name
}
