package utils

const (
	UserRegistered = "user registered successfully"
	UserLoggedIn   = "user logged in successfully"

	MonitorCreated   = "monitor created successfully"
	MonitorUpdated   = "monitor updated successfully"
	MonitorDeleted   = "monitor deleted successfully"
	MonitorRetrieved = "monitor retrieved"
	CheckQueued      = "check queued"

	ChannelCreated = "channel created successfully"
	ChannelUpdated = "channel updated successfully"
	ChannelDeleted = "channel deleted successfully"

	SubscriptionAdded   = "channel subscribed to monitor"
	SubscriptionRemoved = "channel unsubscribed from monitor"
)
