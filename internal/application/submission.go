package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
	"github.com/gabrielmiguelok/fundingintake/pkg/relay"
	"github.com/gabrielmiguelok/fundingintake/pkg/uploads"
)

// ErrInvalidDocument is returned for a document value of an unexpected type.
var ErrInvalidDocument = errors.New("invalid document")

// FilenameSuffix is appended to a document field name to carry its file
// name in the payload.
const FilenameSuffix = "_filename"

// DocumentRef is an attached document. Its content is never rendered back
// to the client.
type DocumentRef struct {
	FileName    string `json:"filename" msgpack:"filename"`
	Size        int64  `json:"size" msgpack:"size"`
	ContentType string `json:"content_type" msgpack:"content_type"`
	Data        []byte `json:"-" msgpack:"-"`
}

// NewDocument checks a file against the document constraints: at most
// 25 MB of PDF, Word, JPEG or PNG.
func NewDocument(filename string, size int64, contentType string, data []byte) (DocumentRef, error) {
	entry, err := uploads.DocumentConfig().Check(filename, size, contentType, data)
	if err != nil {
		return DocumentRef{}, err
	}
	return DocumentRef{
		FileName:    entry.FileName,
		Size:        entry.Size,
		ContentType: entry.ContentType,
		Data:        data,
	}, nil
}

func documentFrom(v any) (*DocumentRef, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case DocumentRef:
		return &d, nil
	case *DocumentRef:
		return d, nil
	case string:
		if strings.TrimSpace(d) == "" {
			return nil, nil
		}
		return &DocumentRef{FileName: d}, nil
	case map[string]any:
		name, _ := d["filename"].(string)
		if name == "" {
			return nil, nil
		}
		return &DocumentRef{FileName: name}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidDocument, v)
	}
}

// BuildSubmission flattens a validated draft into the relay payload. Names
// and free text are trimmed, the email is lower-cased, empty optional
// strings become null and each document contributes its file name under
// "<field>_filename". Documents with content travel as attachments.
func BuildSubmission(values forms.Values, now time.Time) (relay.Submission, error) {
	values = FullSchema().Normalize(values)
	fields := make(map[string]any)

	fields[FirstName] = strings.TrimSpace(values.String(FirstName))
	fields[LastName] = strings.TrimSpace(values.String(LastName))
	fields[BusinessName] = strings.TrimSpace(values.String(BusinessName))
	fields[AmountRequested] = values.Float(AmountRequested)
	fields[ContactEmail] = strings.ToLower(strings.TrimSpace(values.String(ContactEmail)))
	fields[PhoneNumber] = strings.TrimSpace(values.String(PhoneNumber))

	for _, name := range []string{JobTitle, HomeAddress, HomeCity, HomeState, HomeZipCode} {
		fields[name] = optional(values, name)
	}

	for _, name := range append([]string{HasDevelopmentFirm}, EligibilityQuestions...) {
		fields[name] = optional(values, name)
	}

	for _, name := range []string{DetroitResident, Ethnicity, Gender, IsVeteran, IsImmigrant, IsReturningCitizen} {
		fields[name] = optional(values, name)
	}
	for _, name := range []string{EthnicityOther, GenderOther} {
		if IsVisible(values, name) {
			fields[name] = optional(values, name)
		} else {
			fields[name] = nil
		}
	}

	for _, name := range []string{YearsDeveloperExperience, YearsOtherExperience, ProjectsCompleted} {
		fields[name] = values.Float(name)
	}
	fields[ProjectStartingSoon] = optional(values, ProjectStartingSoon)

	for _, name := range Acknowledgements {
		fields[name] = values.Bool(name)
	}

	var attachments []relay.Attachment
	for _, name := range Documents {
		doc, err := documentFrom(values[name])
		if err != nil {
			return relay.Submission{}, fmt.Errorf("%s: %w", name, err)
		}
		if doc == nil {
			fields[name+FilenameSuffix] = nil
			continue
		}
		fields[name+FilenameSuffix] = doc.FileName
		if len(doc.Data) > 0 {
			attachments = append(attachments, relay.Attachment{
				Field:       name,
				FileName:    doc.FileName,
				ContentType: doc.ContentType,
				Data:        doc.Data,
			})
		}
	}

	sub := relay.Submission{Fields: fields, Attachments: attachments}
	sub.Stamp(now)
	return sub, nil
}

func optional(values forms.Values, name string) any {
	s := strings.TrimSpace(values.String(name))
	if s == "" {
		return nil
	}
	return s
}
