package gcp

import (
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// credentialEnvKeys are consulted in order; the first non-empty value wins.
var credentialEnvKeys = []string{
	"RAG_GCS_CREDENTIALS",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"GOOGLE_APPLICATION_CREDENTIALS",
}

// StorageClientOptions builds the options for a read-write bucket client. creds is
// inline JSON or a file path; empty falls back to application default credentials.
func StorageClientOptions(creds string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	creds = strings.TrimSpace(creds)
	switch {
	case creds == "":
		return opts
	case strings.HasPrefix(creds, "{"):
		return append(opts, option.WithCredentialsJSON([]byte(creds)))
	default:
		return append(opts, option.WithCredentialsFile(creds))
	}
}

func credentialsFromEnv() string {
	for _, key := range credentialEnvKeys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
