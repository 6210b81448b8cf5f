package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	maxClipName = 160
	maxFileStem = 120
	defaultStem = "refract_export"
)

// ErrOutputDir wraps every output directory rejection.
var ErrOutputDir = errors.New("invalid output_dir")

// ClipName cleans a clip title for a "FROM CLIP NAME" comment line. An
// empty result falls back to the clip id.
func ClipName(title, clipID string) string {
	if name := cleanText(title, maxClipName); name != "" {
		return name
	}
	return clipID
}

// FileStem turns a project or export name into a file name without
// extension. Names made only of dots are replaced so the result never
// refers to a directory.
func FileStem(name string) string {
	stem := cleanText(name, maxFileStem)
	if strings.Trim(stem, ".") == "" {
		return defaultStem
	}
	return stem
}

// cleanText drops control characters, replaces anything outside the
// allowed set with '_' and caps the result at maxLen runes.
func cleanText(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(" -_.,()", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}

// ValidateOutputDir requires an existing, already clean directory path with
// no ".." elements.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: required", ErrOutputDir)
	}
	if strings.Contains("/"+filepath.ToSlash(dir)+"/", "/../") {
		return fmt.Errorf("%w: path traversal", ErrOutputDir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: %q is not a clean path", ErrOutputDir, dir)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", ErrOutputDir, dir)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, dir)
	}
	return nil
}
