package domain

// ClientRequest describes the request a batch of fragments was produced for.
type ClientRequest struct {
	Path    string              `json:"path"`
	Method  string              `json:"method,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Params  map[string][]string `json:"params,omitempty"`
}

// Header returns the first value of a request header.
func (r ClientRequest) Header(name string) string {
	return first(r.Headers[name])
}

// Param returns the first value of a request parameter.
func (r ClientRequest) Param(name string) string {
	return first(r.Params[name])
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
