package pdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/term"
)

// ErrNoCredentials is returned when an encrypted document needs a password
// and none was supplied.
var ErrNoCredentials = errors.New("no PDF credentials provided")

const tempPrefix = "zbar-decrypted-"

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty" yaml:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty" yaml:"owner_password,omitempty"`
}

func (c *PasswordCredentials) empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// PasswordHandler decrypts password-protected documents into temporary copies.
type PasswordHandler struct {
	allowPasswordPrompt bool
	defaultCredentials  *PasswordCredentials
	in                  io.Reader
	out                 io.Writer
	lines               *bufio.Reader
}

// NewPasswordHandler creates a new password handler. With allowPrompt the
// handler asks on the terminal when the supplied credentials do not work.
func NewPasswordHandler(allowPrompt bool) *PasswordHandler {
	return &PasswordHandler{
		allowPasswordPrompt: allowPrompt,
		in:                  os.Stdin,
		out:                 os.Stderr,
	}
}

// SetDefaultCredentials sets credentials used when a call supplies none.
func (h *PasswordHandler) SetDefaultCredentials(creds *PasswordCredentials) {
	h.defaultCredentials = creds
}

// IsEncrypted reports whether the document cannot be opened without a password.
func (h *PasswordHandler) IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// DecryptPDF returns the path of a decrypted copy of filename, or filename
// itself when it is not encrypted. Remove the copy with CleanupTempFile.
func (h *PasswordHandler) DecryptPDF(filename string, creds *PasswordCredentials) (string, error) {
	encrypted, err := h.IsEncrypted(filename)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return filename, nil
	}

	if creds.empty() {
		creds = h.defaultCredentials
	}
	tempFileName, err := h.createTempFile()
	if err != nil {
		return "", err
	}

	if !creds.empty() {
		if err = api.DecryptFile(filename, tempFileName, decryptionConfig(creds)); err == nil {
			return tempFileName, nil
		}
	} else {
		err = ErrNoCredentials
	}

	if h.allowPasswordPrompt {
		prompted, perr := h.promptForPasswords(filename)
		if perr == nil {
			if err = api.DecryptFile(filename, tempFileName, decryptionConfig(prompted)); err == nil {
				return tempFileName, nil
			}
		} else {
			err = perr
		}
	}

	_ = os.Remove(tempFileName)
	return "", fmt.Errorf("failed to decrypt PDF: %w", err)
}

func decryptionConfig(creds *PasswordCredentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword
	return conf
}

func (h *PasswordHandler) createTempFile() (string, error) {
	f, err := os.CreateTemp("", tempPrefix+"*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = f.Close()
	return f.Name(), nil
}

func (h *PasswordHandler) promptForPasswords(filename string) (*PasswordCredentials, error) {
	_, _ = fmt.Fprintf(h.out, "%s\n", PasswordPrompt(filename))

	creds := &PasswordCredentials{}
	_, _ = fmt.Fprint(h.out, "User password (Enter to skip): ")
	pw, err := h.readPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to read user password: %w", err)
	}
	creds.UserPassword = pw

	if pw == "" {
		_, _ = fmt.Fprint(h.out, "Owner password (Enter to skip): ")
		if pw, err = h.readPassword(); err != nil {
			return nil, fmt.Errorf("failed to read owner password: %w", err)
		}
		creds.OwnerPassword = pw
	}

	if creds.empty() {
		return nil, ErrNoCredentials
	}
	return creds, nil
}

// readPassword reads without echo from a terminal and falls back to a plain
// line read otherwise.
func (h *PasswordHandler) readPassword() (string, error) {
	if f, ok := h.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(h.out)
		return string(b), err
	}
	if h.lines == nil {
		h.lines = bufio.NewReader(h.in)
	}
	line, err := h.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ValidateCredentials checks that creds decrypt the document.
func (h *PasswordHandler) ValidateCredentials(filename string, creds *PasswordCredentials) error {
	if creds.empty() {
		return ErrNoCredentials
	}
	tmp, err := h.createTempFile()
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := api.DecryptFile(filename, tmp, decryptionConfig(creds)); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	return nil
}

// CleanupTempFile removes a decrypted copy created by DecryptPDF. Other paths
// are left alone.
func (h *PasswordHandler) CleanupTempFile(filename string) error {
	if filename == "" {
		return nil
	}
	if strings.HasPrefix(filepath.Base(filename), tempPrefix) && strings.HasSuffix(filename, ".pdf") {
		return os.Remove(filename)
	}
	return nil
}

// PasswordPrompt returns the message shown before asking for a password.
func PasswordPrompt(filename string) string {
	return fmt.Sprintf("The PDF file %q is password protected.", filename)
}

// IsPasswordError reports whether err looks like an encryption failure from pdfcpu.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoCredentials) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication", "invalid credentials"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
