package api

const (
	//PrmUserID parameter
	PrmUserID = "userId"
	//PrmClientID parameter - client generated story ID used for dedup
	PrmClientID = "clientId"
	//PrmTitle parameter
	PrmTitle = "title"
	//PrmDurationSec parameter
	PrmDurationSec = "durationSec"
	//PrmContextBox parameter - free text background for the story
	PrmContextBox = "contextbox"
	//PrmDeviceID parameter
	PrmDeviceID = "deviceId"
	//PrmCreatedAt parameter - client creation time in RFC3339
	PrmCreatedAt = "createdAtISO"
	//PrmEmail parameter
	PrmEmail = "email"
	//PrmFile parameter
	PrmFile = "file"
)

const (
	//HdrDeviceID header
	HdrDeviceID = "X-Device-Id"
	//HdrSecret header carrying the shared upload secret
	HdrSecret = "X-Welltold-Secret"
)
