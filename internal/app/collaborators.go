package app

import "context"

// PassThroughModerator accepts all content. Stands in while moderation is an
// external collaborator wired at startup.
type PassThroughModerator struct{}

func (PassThroughModerator) CheckContent(ctx context.Context, field, text string) error {
	return nil
}

// StaticCatalog validates games and regions against fixed id sets, the shape
// the external catalog service exposes.
type StaticCatalog struct {
	games   map[string]struct{}
	regions map[string]struct{}
}

func NewStaticCatalog(games, regions []string) *StaticCatalog {
	c := &StaticCatalog{
		games:   make(map[string]struct{}, len(games)),
		regions: make(map[string]struct{}, len(regions)),
	}
	for _, g := range games {
		c.games[g] = struct{}{}
	}
	for _, r := range regions {
		c.regions[r] = struct{}{}
	}
	return c
}

func (c *StaticCatalog) ValidGame(id string) bool {
	_, ok := c.games[id]
	return ok
}

func (c *StaticCatalog) ValidRegion(id string) bool {
	_, ok := c.regions[id]
	return ok
}
