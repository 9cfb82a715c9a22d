package transfer

type TwitterTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

type TwitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

type TweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// TweetError is the RFC 7807 style problem body the X API v2 returns on
// non-2xx responses. Detail is preferred over Title for user messages.
type TweetError struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
	Status int    `json:"status"`
}
