package domain

// FieldProvision records the outcome of provisioning one payload index.
// Individual field failures are reported, never fatal: the collection
// survives a partial index failure.
type FieldProvision struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ProvisionReport is the result of a create-or-recreate operation.
type ProvisionReport struct {
	Collection string           `json:"collection"`
	VectorDim  int              `json:"vector_dim"`
	Recreated  bool             `json:"recreated"`
	Fields     []FieldProvision `json:"fields"`
}

// FailedFields returns the names of payload indexes that failed.
func (r ProvisionReport) FailedFields() []string {
	var failed []string
	for _, f := range r.Fields {
		if !f.OK {
			failed = append(failed, f.Field)
		}
	}
	return failed
}
