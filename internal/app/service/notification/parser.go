package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
)

// ParsePayload normalizes a gateway callback body into a flat string map.
// The provider posts form-urlencoded, multipart, JSON, or a raw query string
// depending on account configuration, so all four are accepted.
func ParsePayload(contentType string, raw []byte) (map[string]string, error) {
	mediaType, mediaParams, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case mediaType == "application/json":
		return parseJSON(raw)
	case mediaType == "multipart/form-data":
		boundary := mediaParams["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart body without boundary")
		}
		return parseMultipart(raw, boundary)
	case mediaType == "application/x-www-form-urlencoded":
		return parseQueryString(string(raw))
	default:
		// raw query-string body
		return parseQueryString(string(raw))
	}
}

func parseJSON(raw []byte) (map[string]string, error) {
	// UseNumber keeps amounts as their literal text ("120.00" stays "120.00").
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse json payload: %w", err)
	}
	params := make(map[string]string, len(body))
	for k, v := range body {
		switch t := v.(type) {
		case string:
			params[k] = t
		case nil:
			params[k] = ""
		case json.Number:
			params[k] = t.String()
		default:
			params[k] = fmt.Sprintf("%v", t)
		}
	}
	return params, nil
}

func parseMultipart(raw []byte, boundary string) (map[string]string, error) {
	reader := multipart.NewReader(strings.NewReader(string(raw)), boundary)
	params := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse multipart payload: %w", err)
		}
		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart field %q: %w", part.FormName(), err)
		}
		if name := part.FormName(); name != "" {
			params[name] = string(value)
		}
	}
	return params, nil
}

func parseQueryString(raw string) (map[string]string, error) {
	values, err := url.ParseQuery(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form payload: %w", err)
	}
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[0]
		} else {
			params[k] = ""
		}
	}
	return params, nil
}
