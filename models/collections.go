package models

// Document store collection names.
const (
	CollectionUsers            = "users"
	CollectionCredentials      = "credentials"
	CollectionBookings         = "bookings"
	CollectionProviderServices = "providerServices"
	CollectionMessages         = "messages"
)
