package transfer

type XUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

type XMediaUploadResponse struct {
	Data struct {
		ID               string `json:"id"`
		MediaKey         string `json:"media_key"`
		ExpiresAfterSecs int    `json:"expires_after_secs"`
	} `json:"data"`
}

type XTweetRequest struct {
	Text  string       `json:"text"`
	Media *XTweetMedia `json:"media,omitempty"`
}

type XTweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type XTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type XErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

type BitlyShortenResponse struct {
	Link string `json:"link"`
}
