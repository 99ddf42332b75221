package channel

type CreateChannelRequest struct {
	Type        string `json:"type" validate:"required,oneof=email sms call slack"`
	Destination string `json:"destination" validate:"required,notblank,max=2048"`
	Enabled     *bool  `json:"enabled"`
}

type UpdateChannelRequest struct {
	Destination *string `json:"destination" validate:"omitempty,notblank,max=2048"`
	Enabled     *bool   `json:"enabled"`
}
