package api

// Config is the configuration for the API server.
type Config struct {
	// ListenAddr is the address the server listens on.
	ListenAddr string
}
