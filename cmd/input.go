package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hreq/internal/errdef"
	"hreq/internal/model"
)

// requestFlags are the field values given on the command line.
type requestFlags struct {
	url         string
	method      string
	headers     string
	body        string
	contentType string
	noHistory   bool
}

func (f *requestFlags) register(cmd *cobra.Command, withTarget bool) {
	if withTarget {
		cmd.Flags().StringVarP(&f.url, "url", "u", "", "Request URL")
		cmd.Flags().StringVarP(&f.method, "method", "m", "", "HTTP method: GET, POST, PUT, PATCH, DELETE, OPTIONS or HEAD")
	}
	cmd.Flags().StringVarP(&f.headers, "headers", "d", "", "Headers as a JSON object of strings, or @filename")
	cmd.Flags().StringVarP(&f.body, "body", "b", "", "Request body, or @filename")
	cmd.Flags().StringVarP(&f.contentType, "content-type", "t", "", "Body type: PLAIN, JSON or XML")
}

// record builds the request from the flags. Empty method and content type
// fall back to the given defaults.
func (f *requestFlags) record(method model.Method, ct model.ContentType) (model.RequestRecord, error) {
	rec := model.RequestRecord{
		Method:      method,
		URL:         strings.TrimSpace(f.url),
		ContentType: ct,
	}

	if f.method != "" {
		m, ok := model.ParseMethod(f.method)
		if !ok {
			return rec, errdef.New(errdef.CodeParse, "unknown method %q", f.method)
		}
		rec.Method = m
	}
	if f.contentType != "" {
		c, ok := model.ParseContentType(f.contentType)
		if !ok {
			return rec, errdef.New(errdef.CodeParse, "unknown content type %q", f.contentType)
		}
		rec.ContentType = c
	}

	var err error
	if rec.Headers, err = readInput(f.headers); err != nil {
		return rec, err
	}
	if rec.Body, err = readInput(f.body); err != nil {
		return rec, err
	}
	return rec, nil
}

// readInput returns s, or the contents of the file when s is @filename.
func readInput(s string) (string, error) {
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}
	content, err := readFileInWorkDir(strings.TrimPrefix(s, "@"))
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "failed to read file")
	}
	return content, nil
}

// readFileInWorkDir reads a file that must resolve, symlinks included, to a
// path inside the working directory.
func readFileInWorkDir(filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(wd); err == nil {
		wd = resolved
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = cleanPath
	}

	if !within(wd, realPath) {
		return "", fmt.Errorf("access denied: file must be within current directory")
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

var sensitiveBodyPatterns = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"private_key", "privatekey",
	"credit_card", "creditcard", "card_number",
	"ssn", "social_security",
	"access_token", "refresh_token",
	"client_secret", "auth",
}

// looksSensitive reports whether body seems to carry credentials.
func looksSensitive(body string) bool {
	lower := strings.ToLower(body)
	for _, pattern := range sensitiveBodyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
