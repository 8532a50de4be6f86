package topics

const (
	// Partidas
	MatchFeed = "match_feed"

	// Canal Redis Pub/Sub lido por todas as instâncias da API
	MatchNotificationsChannel = "match_notifications"
)
