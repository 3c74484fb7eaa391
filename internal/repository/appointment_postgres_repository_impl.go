package repository

import (
	"context"
	"time"

	"clinic-dashboard/internal/domain/entity"
	domainRepo "clinic-dashboard/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type appointmentPostgresRepository struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewAppointmentPostgresRepository(db *gorm.DB, log *logrus.Logger) domainRepo.AppointmentRepository {
	return &appointmentPostgresRepository{db: db, log: log}
}

func (r *appointmentPostgresRepository) Source() string {
	return entity.Appointment{}.TableName()
}

// Load reads every consultation with a date. NULL dates are the SQL
// counterpart of unparseable CSV dates and are excluded by the query.
func (r *appointmentPostgresRepository) Load(ctx context.Context) (*entity.Dataset, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Where("dataconsulta IS NOT NULL").
		Order("dataconsulta ASC, id ASC").
		Find(&appointments).Error
	if err != nil {
		r.log.Warnf("Failed to load appointments: %+v", err)
		return nil, &domainRepo.DataSourceError{Source: r.Source(), Err: err}
	}

	for i := range appointments {
		appointments[i].Date = calendarDay(appointments[i].Date)
	}

	r.log.WithFields(logrus.Fields{
		"source": r.Source(),
		"rows":   len(appointments),
	}).Info("Appointments loaded from database")

	return &entity.Dataset{
		Records:  appointments,
		Source:   r.Source(),
		LoadedAt: time.Now(),
	}, nil
}
