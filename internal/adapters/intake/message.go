// Package intake turns inbound mail (SMTP, IMAP, mbox files, JSON files)
// into raw emails for the triage service.
package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/mikey/llm-support-triage/internal/core"
)

// Processor runs one raw email through the triage pipeline
type Processor interface {
	Process(ctx context.Context, raw core.RawEmail) core.PipelineResult
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// ParseMessage reads an RFC 5322 message into a raw email with id, subject,
// body and (when the From header parses) from fields. The Message-ID header
// is used as the id, or fallbackID when it is missing.
func ParseMessage(r io.Reader, fallbackID string) (core.RawEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	raw := core.RawEmail{
		"id":      messageID(msg.Header, fallbackID),
		"subject": decodeHeader(msg.Header.Get("Subject")),
		"body":    extractText(msg.Header, msg.Body),
	}

	if from := fromAddress(msg.Header.Get("From")); from != "" {
		raw["from"] = from
	}
	return raw, nil
}

func messageID(h mail.Header, fallback string) string {
	id := strings.TrimSpace(h.Get("Message-ID"))
	id = strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">")
	if id == "" {
		return fallback
	}
	return id
}

// fromAddress returns the bare address of the From header, or the decoded
// header text when it does not parse so validation can reject it
func fromAddress(header string) string {
	if header == "" {
		return ""
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	addr, err := parser.Parse(header)
	if err != nil {
		return decodeHeader(header)
	}
	return addr.Address
}

func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// extractText returns the first text/plain part of the message, or the text
// of the first text/html part when there is no plain part. Attachments are skipped.
func extractText(header interface{ Get(string) string }, body io.Reader) string {
	var plain, htmlText string

	var walk func(h interface{ Get(string) string }, r io.Reader)
	walk = func(h interface{ Get(string) string }, r io.Reader) {
		ctype, params, err := mime.ParseMediaType(h.Get("Content-Type"))
		if err != nil {
			ctype = "text/plain"
		}

		if strings.HasPrefix(ctype, "multipart/") {
			mr := multipart.NewReader(r, params["boundary"])
			for {
				p, err := mr.NextPart()
				if err != nil {
					return
				}
				walk(p.Header, p)
			}
		}

		if disp, _, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil && disp == "attachment" {
			return
		}

		switch {
		case ctype == "text/plain" && plain == "":
			plain = decodePart(h, params, r)
		case ctype == "text/html" && htmlText == "":
			htmlText = htmlToText(decodePart(h, params, r))
		}
	}

	walk(header, body)

	if strings.TrimSpace(plain) != "" {
		return strings.TrimSpace(plain)
	}
	return strings.TrimSpace(htmlText)
}

// decodePart undoes the transfer encoding and converts the charset to UTF-8
func decodePart(h interface{ Get(string) string }, params map[string]string, r io.Reader) string {
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding"))) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	data, err := io.ReadAll(r)
	if err != nil && len(data) == 0 {
		return ""
	}

	charset := params["charset"]
	if charset == "" {
		return string(data)
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return string(data)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// htmlToText returns the visible text of an HTML document, one block per line
func htmlToText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b bytes.Buffer
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseBlankLines(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				skip++
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "tr":
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseBlankLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
