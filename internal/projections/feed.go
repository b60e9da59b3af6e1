// feed.go renders the Atom feed projection: the most recently created
// versions across all gems, newest first, each linking to its gem's page.
package projections

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"
)

// DefaultFeedSize bounds how many versions the feed carries
const DefaultFeedSize = 25

// AtomFeed is the XML document served for the feed representation
type AtomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Xmlns   string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Entries []AtomEntry `xml:"entry"`
}

// AtomEntry is one version in the feed
type AtomEntry struct {
	Title   string   `xml:"title"`
	ID      string   `xml:"id"`
	Link    AtomLink `xml:"link"`
	Updated string   `xml:"updated"`
	Summary string   `xml:"summary,omitempty"`
}

// AtomLink points an entry at its gem's detail page
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// Feed assembles the feed projection of the most recent versions
func (p *Projector) Feed(ctx context.Context) (*AtomFeed, error) {
	versions, err := p.versions.LatestAcross(ctx, DefaultFeedSize)
	if err != nil {
		return nil, err
	}

	feed := &AtomFeed{
		Xmlns:   "http://www.w3.org/2005/Atom",
		Title:   "New gem versions",
		ID:      p.baseURL + "/gems?format=atom",
		Updated: time.Now().UTC().Format(time.RFC3339),
	}

	for _, v := range versions {
		name := ""
		if v.RubygemName != nil {
			name = *v.RubygemName
		}

		entry := AtomEntry{
			Title:   v.Title(),
			ID:      fmt.Sprintf("%s/gems/%s/versions/%s", p.baseURL, name, v.Number),
			Updated: v.CreatedAt.UTC().Format(time.RFC3339),
			Link: AtomLink{
				Href: fmt.Sprintf("%s/gems/%s", p.baseURL, name),
				Rel:  "alternate",
			},
		}
		if v.Description != nil {
			entry.Summary = *v.Description
		}
		feed.Entries = append(feed.Entries, entry)
	}

	if len(feed.Entries) > 0 {
		feed.Updated = feed.Entries[0].Updated
	}

	return feed, nil
}

// Render serializes the feed with an XML declaration
func (f *AtomFeed) Render() ([]byte, error) {
	body, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
