package app

import (
	"context"

	"go.uber.org/zap"

	"geolife2one/internal/store"
)

// Lists the imported day users. With eligibleOnly only those passing the export selection
// thresholds are returned.
func (a *App) DayUsers(ctx context.Context, eligibleOnly bool) ([]store.DayUser, error) {
	if !eligibleOnly {
		return a.Store.DayUsers(ctx)
	}
	ids, err := a.Store.SelectDayUsers(ctx, int64(a.Config.MinDuration), int64(a.Config.MinCount))
	if err != nil {
		return nil, err
	}
	return a.Store.DayUsersByID(ctx, ids)
}

// Reverse geocodes every day user that has no country yet and stores the result.
// ctx: cancels the run
// Returns how many day users were updated or any errors
func (a *App) LocateDayUsers(ctx context.Context) (int, error) {
	locator, err := a.locator()
	if err != nil {
		return 0, err
	}
	dayUsers, err := a.Store.DayUsers(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, u := range dayUsers {
		if u.Country != "" {
			continue
		}
		place, err := locator.Locate(u.CentroidLat, u.CentroidLon)
		if err != nil {
			return updated, err
		}
		timezone := u.Timezone
		if timezone == "" {
			timezone = place.TimeZone
		}
		if err := a.Store.UpdatePlace(ctx, u.ID, place.Country, place.City, timezone); err != nil {
			return updated, err
		}
		updated++
	}
	a.Logger.Info("day users located", zap.Int("updated", updated))
	return updated, nil
}
