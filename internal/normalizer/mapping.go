package normalizer

// Origins with built-in key-mapping tables.
const (
	OriginCyberNews = "cybernews"
	OriginNewsFeed  = "newsfeed"
	OriginEvent     = "event"
)

const (
	defaultNewsSource  = "CyberNews"
	defaultEventSource = "threathunter"
)

// KeyMap lists, for every output field, the candidate input paths in priority order.
type KeyMap struct {
	ID      []string
	Title   []string
	Summary []string
	URL     []string
	Date    []string
	Image   []string
	Source  []string

	// DefaultSource is used when neither the record nor the caller supply a source label.
	DefaultSource string
}

var builtinKeyMaps = map[string]KeyMap{
	OriginCyberNews: {
		ID:            []string{"id"},
		Title:         []string{"headlines"},
		Summary:       []string{"fullNews"},
		URL:           []string{"newsURL"},
		Date:          []string{"newsDate"},
		Image:         []string{"newsImgURL"},
		Source:        []string{"author"},
		DefaultSource: defaultNewsSource,
	},
	OriginNewsFeed: {
		ID:            []string{"id", "guid"},
		Title:         []string{"title", "headline"},
		Summary:       []string{"description", "summary", "content"},
		URL:           []string{"url", "link"},
		Date:          []string{"publishedAt", "pubDate", "date"},
		Image:         []string{"urlToImage", "image"},
		Source:        []string{"source.name", "source", "author"},
		DefaultSource: defaultNewsSource,
	},
	OriginEvent: {
		ID:            []string{"event_id", "id"},
		Title:         []string{"event_type", "type", "action"},
		Summary:       []string{"description", "message", "details"},
		URL:           []string{"url", "dest_url"},
		Date:          []string{"timestamp", "_time", "time"},
		Source:        []string{"source", "host", "src_host"},
		DefaultSource: defaultEventSource,
	},
}

// KeyMapFor returns the table for origin, falling back to the CyberNews table.
func KeyMapFor(origin string) KeyMap {
	if km, ok := builtinKeyMaps[origin]; ok {
		return km
	}
	return builtinKeyMaps[OriginCyberNews]
}
