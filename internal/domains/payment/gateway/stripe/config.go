package stripe

// Config holds Stripe API credentials and endpoints.
type Config struct {
	SecretKey string
	APIURL    string
}

const defaultAPIURL = "https://api.stripe.com"

func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return defaultAPIURL
}
