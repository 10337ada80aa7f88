package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
)

// Fatal conditions. Everything else degrades to partial or empty content.
var (
	ErrInput             = errors.New("input is not a readable PDF")
	ErrEncryptedDocument = errors.New("document is password protected")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrSizeLimit         = errors.New("document exceeds page limit")
)

// SizeLimitError reports a document rejected by the hard page ceiling.
type SizeLimitError struct {
	Pages int
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("document has %d pages, limit is %d", e.Pages, e.Limit)
}

// Is lets errors.Is(err, ErrSizeLimit) match.
func (e *SizeLimitError) Is(target error) bool {
	return target == ErrSizeLimit
}

// OpenOptions controls validation done by Open.
type OpenOptions struct {
	Password     string
	MaxPages     int // hard ceiling, 0 disables
	SoftMaxPages int // above this a size warning is logged
}

// Document is an opened, validated PDF.
type Document struct {
	data      []byte
	reader    *pdf.Reader
	pages     int
	encrypted bool
	large     bool
	password  string
}

var (
	pdfHeader     = []byte("%PDF-")
	encryptMarker = []byte("/Encrypt")
)

// Open validates data and opens it for extraction. Encryption and the page
// ceilings are checked here, before any page content is read.
func Open(ctx context.Context, data []byte, opts OpenOptions) (doc *Document, err error) {
	log := logger.FromContext(ctx)

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInput)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrInput)
	}

	encrypted := bytes.Contains(data, encryptMarker)

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			if encrypted {
				err = fmt.Errorf("%w: %v", ErrEncryptedDocument, r)
				return
			}
			err = fmt.Errorf("%w: PDF library crashed: %v", ErrInput, r)
		}
	}()

	reader, openErr := newReader(data, opts.Password)
	if openErr != nil {
		if encrypted {
			if opts.Password != "" && errors.Is(openErr, pdf.ErrInvalidPassword) {
				return nil, fmt.Errorf("%w: %w", ErrEncryptedDocument, ErrInvalidPassword)
			}
			log.Info().Err(openErr).Bool("password", opts.Password != "").Msg("encrypted document could not be opened")
			return nil, fmt.Errorf("%w: %v", ErrEncryptedDocument, openErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrInput, openErr)
	}

	pages := reader.NumPage()
	if pages <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInput)
	}
	if opts.MaxPages > 0 && pages > opts.MaxPages {
		return nil, &SizeLimitError{Pages: pages, Limit: opts.MaxPages}
	}

	doc = &Document{
		data:      data,
		reader:    reader,
		pages:     pages,
		encrypted: encrypted,
		password:  opts.Password,
	}
	if opts.SoftMaxPages > 0 && pages > opts.SoftMaxPages {
		doc.large = true
		log.Warn().Int("pages", pages).Int("soft_limit", opts.SoftMaxPages).
			Msg("size warning: large statement, processing in page batches")
	}
	return doc, nil
}

func newReader(data []byte, password string) (*pdf.Reader, error) {
	r := bytes.NewReader(data)
	if password == "" {
		return pdf.NewReader(r, int64(len(data)))
	}
	asked := false
	return pdf.NewReaderEncrypted(r, int64(len(data)), func() string {
		if asked {
			return ""
		}
		asked = true
		return password
	})
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int { return d.pages }

// Encrypted reports whether the document carries an encryption dictionary.
func (d *Document) Encrypted() bool { return d.encrypted }

// Large reports whether the document is above the soft page ceiling.
func (d *Document) Large() bool { return d.large }
