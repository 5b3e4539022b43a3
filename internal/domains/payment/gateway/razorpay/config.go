package razorpay

// Config holds Razorpay API credentials and endpoints.
type Config struct {
	KeyID     string
	KeySecret string
	APIURL    string
}

const defaultAPIURL = "https://api.razorpay.com"

func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return defaultAPIURL
}
