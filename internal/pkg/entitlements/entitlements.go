package entitlements

import (
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
)

// PostingQuota is what a subscription currently entitles its user to publish.
type PostingQuota struct {
	Active    bool
	Used      int
	Limit     int
	Remaining int
	CanPost   bool
}

// Posting computes the posting quota of sub at now. A nil or inactive
// subscription yields a zero quota; an expired one echoes its counters but
// grants nothing.
func Posting(sub *models.UserSubscription, now time.Time) PostingQuota {
	if sub == nil || !sub.IsActive {
		return PostingQuota{}
	}
	if sub.IsExpired(now) {
		return PostingQuota{Used: sub.PostsUsed, Limit: sub.PostsLimit}
	}
	remaining := sub.PostsLimit - sub.PostsUsed
	return PostingQuota{
		Active:    true,
		Used:      sub.PostsUsed,
		Limit:     sub.PostsLimit,
		Remaining: remaining,
		CanPost:   remaining > 0,
	}
}
