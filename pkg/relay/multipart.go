package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// PayloadPart names the multipart part carrying the JSON field map. Every
// other part with a file name is an attachment keyed by its form name.
const PayloadPart = "payload"

// ErrMalformedBody is returned for request bodies that cannot be decoded.
var ErrMalformedBody = errors.New("malformed submission body")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode renders the submission as JSON, or as multipart/form-data when it
// carries attachments. It returns the body and its content type.
func (s Submission) Encode() ([]byte, string, error) {
	fields := s.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("encode payload: %w", err)
	}
	if len(s.Attachments) == 0 {
		return payload, "application/json", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, PayloadPart))
	header.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	for _, a := range s.Attachments {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(a.Field), quoteEscaper.Replace(a.FileName)))
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// DecodeRequest reads a JSON or multipart submission from r.
func DecodeRequest(r *http.Request) (Submission, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		return decodeMultipart(r.Body, params["boundary"])
	}

	fields, err := decodeFields(r.Body)
	if err != nil {
		return Submission{}, err
	}
	return Submission{Fields: fields}, nil
}

func decodeFields(r io.Reader) (map[string]any, error) {
	var fields map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedBody)
	}
	return fields, nil
}

func decodeMultipart(body io.Reader, boundary string) (Submission, error) {
	if boundary == "" {
		return Submission{}, fmt.Errorf("%w: missing multipart boundary", ErrMalformedBody)
	}

	var sub Submission
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Submission{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}

		switch {
		case part.FormName() == PayloadPart:
			fields, err := decodeFields(part)
			if err != nil {
				return Submission{}, err
			}
			sub.Fields = fields
		case part.FileName() != "":
			data, err := io.ReadAll(part)
			if err != nil {
				return Submission{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
			}
			sub.Attachments = append(sub.Attachments, Attachment{
				Field:       part.FormName(),
				FileName:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			})
		}
		part.Close()
	}

	if sub.Fields == nil {
		return Submission{}, fmt.Errorf("%w: missing %s part", ErrMalformedBody, PayloadPart)
	}
	return sub, nil
}
