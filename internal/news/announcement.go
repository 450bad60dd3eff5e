package news

import (
	"context"
	"time"

	"AShareSentinel/internal/model"
)

// AnnouncementClient finds cninfo announcements through a SerperClient.
type AnnouncementClient struct {
	Serper *SerperClient
}

func NewAnnouncementClient(serper *SerperClient) *AnnouncementClient {
	return &AnnouncementClient{Serper: serper}
}

// Announcements implements AnnouncementSource.
func (a *AnnouncementClient) Announcements(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error) {
	res, err := a.Serper.Search(ctx, "site:cninfo.com.cn "+symbol+" 公告", 10)
	if err != nil {
		return nil, err
	}
	return BuildAnnouncements(symbol, res, a.Serper.now(), lookback), nil
}

// BuildAnnouncements is BuildNewsItems for announcement hits: ids are
// prefixed with "ann|" and the source is always cninfo.
func BuildAnnouncements(symbol string, res *SearchResult, now time.Time, lookback time.Duration) []model.NewsItem {
	return buildItems(symbol, res, now, lookback, func(link, title string) (string, string) {
		return StableHash("ann|" + symbol + "|" + link + "|" + title), "cninfo"
	})
}
