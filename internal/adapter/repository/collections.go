package repository

// Collections names the document collections backing each repository.
type Collections struct {
	Progress string
	Profiles string
	Streaks  string
}

// DefaultCollections are the collection names used by the mobile app.
func DefaultCollections() Collections {
	return Collections{Progress: "userProgress", Profiles: "users", Streaks: "userStreaks"}
}

func (c Collections) withDefaults() Collections {
	d := DefaultCollections()
	if c.Progress == "" {
		c.Progress = d.Progress
	}
	if c.Profiles == "" {
		c.Profiles = d.Profiles
	}
	if c.Streaks == "" {
		c.Streaks = d.Streaks
	}
	return c
}
