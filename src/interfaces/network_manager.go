package interfaces

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for outbound HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request against the URL with the query parameters
	// and returns the response body.
	Get(url string, params map[string]string) ([]byte, error)
}
