package ibmcloud

import (
	"fmt"
	"io"
)

const maxResponseSize int64 = 10 * 1024 * 1024 // 10MB

// AuthError reports a request rejected by IBM Cloud, typically for
// credential reasons.
type AuthError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ibmcloud: %s rejected: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// NotFoundError reports that no service instance of the requested resource
// type is provisioned in the account.
type NotFoundError struct {
	ResourceTypeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ibmcloud: no Qiskit Runtime instance found for resource id %s (create one at quantum.ibm.com)", e.ResourceTypeID)
}

// readBody reads a response body up to maxResponseSize.
func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxResponseSize {
		return data[:maxResponseSize], nil
	}
	return data, nil
}
