package get_availability

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/types"
)

// GenerateSlots строит сетку слотов дня для услуги и отмечает доступность.
// Функция чистая: записи дня передаются снаружи.
//
// Слот недоступен, если с ним пересекается неотменённая запись услуги, или если
// дата сегодняшняя и слот уже начался. Начавшиеся слоты остаются в сетке,
// чтобы она была без разрывов.
func GenerateSlots(
	date time.Time,
	service *domain.Service,
	cfg *domain.ScheduleConfig,
	booked []*domain.Appointment,
	now time.Time,
) ([]domain.TimeSlot, error) {
	granularity := cfg.Granularity(service)

	grid, err := domain.GenerateGrid(cfg.OpenTime, cfg.CloseTime, granularity)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Appointment, 0, len(booked))
	for _, a := range booked {
		if a.IsActive() && a.ServiceID == service.ID {
			active = append(active, a)
		}
	}

	today := domain.SameDay(domain.DateOnly(date), domain.DateOnly(now))
	current := types.NewTimeString(now)

	slots := make([]domain.TimeSlot, 0, len(grid))
	for _, start := range grid {
		end, err := start.AddMinutes(granularity)
		if err != nil {
			return nil, err
		}

		started := today && !current.IsBefore(start)

		taken := false
		for _, a := range active {
			if a.Overlaps(start, end) {
				taken = true
				break
			}
		}

		slots = append(slots, domain.TimeSlot{
			ID:        domain.SlotID(date, start, service.ID),
			StartTime: start,
			EndTime:   end,
			Available: !taken && !started,
			ServiceID: service.ID,
		})
	}

	return slots, nil
}
