package constants

// Durable storage keys. They match the keys the browser client writes to local
// storage so an exported profile can be imported as-is.
const (
	StorageKeyFavorites = "favoriteClubs"
	StorageKeyLocation  = "userLocation"
	StorageKeyUser      = "queueUser"
)
