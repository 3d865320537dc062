package gpx

import "regexp"

// Extension is the file suffix of stored tracks
const Extension = ".gpx"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'.
// Storage relies on this being deterministic so a name always maps to one file.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// FileName returns the file name a track with the given name is stored under
func FileName(name string) string {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "track"
	}
	return safe + Extension
}
