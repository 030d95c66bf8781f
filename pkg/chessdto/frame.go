package chessdto

// FrameActionRequest is the body a frame client posts on a button press.
// UntrustedData is used as-is unless hub validation is enabled, in which case
// only the fields verified from TrustedData.MessageBytes count.
type FrameActionRequest struct {
	UntrustedData struct {
		FID         uint64 `json:"fid"`
		URL         string `json:"url"`
		ButtonIndex int    `json:"buttonIndex" validate:"min=0,max=4"`
		InputText   string `json:"inputText" validate:"max=32"`
		State       string `json:"state" validate:"max=1024"`
	} `json:"untrustedData"`
	TrustedData struct {
		MessageBytes string `json:"messageBytes"`
	} `json:"trustedData"`
}
