package config

import (
	"strconv"
	"time"
)

const (
	baseURLVar          = "API_BASE_URL"
	requestTimeoutVar   = "REQUEST_TIMEOUT_SECONDS"
	storageNamespaceVar = "STORAGE_NAMESPACE"

	defaultRequestTimeout = 30 * time.Second
)

type ClientVars struct{}

var _ ClientConfig = ClientVars{}

// GetBaseURL returns the base URL of the backend REST API
// (e.g. "https://erp.example.com/api/v1")
func (ClientVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8000/api/v1")
}

// GetRequestTimeout returns the per-request timeout for outbound calls
func (ClientVars) GetRequestTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv(requestTimeoutVar, ""))
	if err != nil || seconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(seconds) * time.Second
}

// GetStorageNamespace returns the key under which the session is persisted
func (ClientVars) GetStorageNamespace() string {
	return GetEnv(storageNamespaceVar, "school-erp-auth")
}
