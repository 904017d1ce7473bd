package ingest

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const genericMimeType = "application/octet-stream"

// Validate buffers r and checks it against opt.
//
// The filename and a known declared size are checked before any byte is read.
// The body is read through a limit of one byte past the maximum, so an oversized stream is
// rejected without buffering more than the limit.
func Validate(r io.Reader, filename, mimeType string, declaredSize int64, opt Options) (*ValidatedFile, error) {
	const op = "validate"
	opt = opt.withDefaults()

	if r == nil {
		return nil, validationError(op, ErrReaderNil)
	}
	if n := utf8.RuneCountInString(filename); n > opt.MaxFilenameLength {
		return nil, validationError(op, fmt.Errorf("%w: %d characters, limit is %d", ErrFilenameTooLong, n, opt.MaxFilenameLength))
	}

	limit := opt.MaxSizeBytes()
	if declaredSize > limit {
		return nil, validationError(op, fmt.Errorf("%w: %s exceeds the %s limit",
			ErrFileTooLarge, humanize.IBytes(uint64(declaredSize)), humanize.IBytes(uint64(limit))))
	}

	buf, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, validationError(op, fmt.Errorf("read upload: %w", err))
	}
	if int64(len(buf)) > limit {
		return nil, validationError(op, fmt.Errorf("%w: exceeds the %s limit", ErrFileTooLarge, humanize.IBytes(uint64(limit))))
	}

	resolved := resolveMimeType(mimeType, buf)
	if !slices.ContainsFunc(opt.AllowedMimeTypes, func(a string) bool { return normalizeMimeType(a) == resolved }) {
		return nil, validationError(op, fmt.Errorf("%w: %s", ErrMimeTypeNotAllowed, resolved))
	}

	return &ValidatedFile{
		Buffer:   buf,
		Filename: filename,
		MimeType: resolved,
	}, nil
}

// resolveMimeType trusts the declared type unless it is missing or generic,
// in which case the content is sniffed.
func resolveMimeType(declared string, buf []byte) string {
	if t := normalizeMimeType(declared); t != "" && t != genericMimeType {
		return t
	}
	return normalizeMimeType(mimetype.Detect(buf).String())
}

func normalizeMimeType(v string) string {
	base, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
