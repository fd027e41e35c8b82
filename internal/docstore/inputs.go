package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// The record schema has evolved across kiosk versions; several logical
// fields have historical JSON aliases. Decoding tolerates all of them
// rather than failing closed.
var (
	photoRefAliases  = []string{"photoRef", "selfieUrl", "selfieURL"}
	photoAtAliases   = []string{"photoUploadedAt", "selfieUploadedAt"}
	firstNameAliases = []string{"firstName", "displayName"}
)

type inputsDoc struct {
	PhotoRef        string `json:"photoRef,omitempty"`
	PhotoUploadedAt string `json:"photoUploadedAt,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Email           string `json:"email,omitempty"`
}

// EncodeInputs serializes inputs to the canonical JSON field names.
func EncodeInputs(in Inputs) ([]byte, error) {
	doc := inputsDoc{
		PhotoRef:  in.PhotoRef,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Gender:    in.Gender,
		Email:     in.Email,
	}
	if in.PhotoUploadedAt != nil {
		doc.PhotoUploadedAt = in.PhotoUploadedAt.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	return data, nil
}

// DecodeInputs parses an inputs document, accepting historical aliases for
// renamed fields.
func DecodeInputs(data []byte) (Inputs, error) {
	if len(data) == 0 {
		return Inputs{}, nil
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inputs{}, fmt.Errorf("decode inputs: %w", err)
	}

	in := Inputs{
		PhotoRef:  firstString(raw, photoRefAliases...),
		FirstName: firstString(raw, firstNameAliases...),
		LastName:  firstString(raw, "lastName"),
		Gender:    firstString(raw, "gender"),
		Email:     firstString(raw, "email"),
	}
	if ts := firstString(raw, photoAtAliases...); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Inputs{}, fmt.Errorf("decode inputs: photo upload timestamp: %w", err)
		}
		in.PhotoUploadedAt = &parsed
	}
	return in, nil
}

func firstString(raw map[string]json.RawMessage, names ...string) string {
	for _, name := range names {
		msg, ok := raw[name]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(msg, &value); err != nil {
			continue
		}
		if value != "" {
			return value
		}
	}
	return ""
}
