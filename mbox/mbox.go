package mbox

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/dhcgn/flight-price-tracker/filter"
	"github.com/dhcgn/flight-price-tracker/model"
)

var ErrEmptyPath = errors.New("mbox path is empty")

// bodyDateWindow bounds how much of the body is searched for a fallback
// tracking date.
const bodyDateWindow = 500

var bodyDate = regexp.MustCompile(`\b(\d{1,2})\s+(\pL+)\s+(\d{4})\b`)

type Options struct {
	Path   string
	Filter *filter.Filter
}

// Reader walks an mbox archive and decodes each message. Messages that
// cannot be decoded are reported through their envelope and the walk
// continues; failing to read the container itself ends it.
type Reader struct {
	path   string
	filter *filter.Filter
	logger *slog.Logger
}

func NewReader(opts Options, logger *slog.Logger) (*Reader, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &Reader{path: path, filter: opts.Filter, logger: logger}, nil
}

// Stream opens the archive and calls fn for every message in file order.
// An error returned by fn stops the walk and is returned as is.
func (r *Reader) Stream(ctx context.Context, fn func(model.Envelope) error) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	return r.StreamFrom(ctx, file, fn)
}

// StreamFrom is Stream over an already opened archive.
func (r *Reader) StreamFrom(ctx context.Context, src io.Reader, fn func(model.Envelope) error) error {
	reader := mboxlib.NewReader(src)

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read mbox message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return fmt.Errorf("read mbox message %d: %w", idx, err)
		}

		msg, err := ParseMessage(raw)
		msg.Index = idx
		if err != nil {
			err = fmt.Errorf("message %d parse: %w", idx, err)
			if r.logger != nil {
				r.logger.Warn("skipping undecodable message", "path", r.path, "index", idx, "err", err)
			}
			if err := fn(model.Envelope{Message: msg, Err: err}); err != nil {
				return err
			}
			continue
		}

		env := model.Envelope{Message: msg, Filtered: !r.filter.Allows(msg)}
		if err := fn(env); err != nil {
			return err
		}
	}
}

// ParseMessage decodes one raw RFC 5322 message: headers, the first
// text/plain part (transfer encoding and charset resolved) and the tracking
// date.
func ParseMessage(raw []byte) (model.Message, error) {
	sum := sha256.Sum256(raw)
	msg := model.Message{
		TraceID: uuid.NewString(),
		Hash:    base64.StdEncoding.EncodeToString(sum[:]),
		Size:    int64(len(raw)),
	}

	header, _ := splitRawMessage(raw)
	msg.Header = string(header)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return msg, err
	}
	defer mr.Close()

	msg.ID = messageID(mr.Header)
	msg.From = mr.Header.Get("From")
	if list, err := mr.Header.AddressList("From"); err == nil && len(list) > 0 {
		msg.From = list[0].Address
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}

	body, err := plainText(mr)
	if err != nil {
		return msg, err
	}
	msg.Body = body

	msg.DateHeader = mr.Header.Get("Date")
	msg.ReceivedAt = trackingDate(mr.Header, body)

	if msg.ID == "" {
		msg.ID = msg.Hash[:16]
	}
	return msg, nil
}

func messageID(h mail.Header) string {
	if id, err := h.MessageID(); err == nil && id != "" {
		return id
	}
	return strings.Trim(strings.TrimSpace(h.Get("Message-Id")), "<>")
}

func plainText(mr *mail.Reader) (string, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if message.IsUnknownCharset(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil {
			contentType = "text/plain"
		}
		if contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read text/plain part: %w", err)
		}
		return string(body), nil
	}
}

// trackingDate prefers the Date header and falls back to the first
// "6 October 2025" style date near the top of the body.
func trackingDate(h mail.Header, body string) time.Time {
	if h.Get("Date") != "" {
		if t, err := h.Date(); err == nil && !t.IsZero() {
			return t
		}
	}

	head := body
	if len(head) > bodyDateWindow {
		head = head[:bodyDateWindow]
	}
	m := bodyDate.FindStringSubmatch(head)
	if m == nil {
		return time.Time{}
	}
	candidate := m[1] + " " + m[2] + " " + m[3]
	for _, layout := range []string{"2 January 2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t
		}
	}
	return time.Time{}
}

func splitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}

// CountMessages counts the messages in an mbox file without decoding them.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}

		if _, err := io.Copy(io.Discard, msgReader); err != nil {
			return 0, fmt.Errorf("message %d: %w", count, err)
		}
		count++
	}
}
