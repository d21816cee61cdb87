package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NormalizeEmail folds an email address to its canonical comparable form.
func NormalizeEmail(email string) string {
	return CleanString(email, true /* lower */)
}

// NormalizePhone strips a phone number down to digits, keeping a leading "+".
// An international "00" prefix is folded to "+".
func NormalizePhone(phone string) string {
	phone = CleanString(phone)
	var b strings.Builder
	for i, char := range phone {
		if i == 0 && char == '+' {
			b.WriteRune(char)
			continue
		}
		if unicode.IsDigit(char) {
			b.WriteRune(char)
		}
	}
	norm := b.String()
	if strings.HasPrefix(norm, "00") {
		norm = "+" + norm[2:]
	}
	return norm
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			log.Fatal("project root not found")
		}
		currDir = newDir
	}
}
