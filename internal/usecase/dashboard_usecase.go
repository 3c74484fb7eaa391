package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-dashboard/internal/analytics"
	"clinic-dashboard/internal/converter"
	"clinic-dashboard/internal/delivery/dto"
	"clinic-dashboard/internal/domain/entity"
	"clinic-dashboard/internal/infrastructure/metrics"
	"clinic-dashboard/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidDate       = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidDateRange  = errors.New("start date must not be after end date")
	ErrEmptyFilterResult = errors.New(analytics.EmptyResultNotice)
)

// DatasetProvider hands out the current dataset snapshot.
type DatasetProvider interface {
	Get(ctx context.Context) (*entity.Dataset, error)
	Invalidate()
}

type DashboardUsecase interface {
	GetFilterOptions(ctx context.Context) (*dto.FilterOptionsResponse, error)
	GetDashboard(ctx context.Context, req *dto.DashboardRequest) (*dto.DashboardResponse, error)
	Export(ctx context.Context, req *dto.ExportRequest) (*dto.ExportFile, error)
	Refresh(ctx context.Context) (*dto.FilterOptionsResponse, error)
	// Run executes the pipeline for already-built criteria.
	Run(ctx context.Context, criteria entity.FilterCriteria) (analytics.Result, error)
}

type dashboardUsecase struct {
	log            *logrus.Logger
	datasets       DatasetProvider
	resultCache    service.DashboardCacheService
	metrics        *metrics.DashboardMetrics
	formatter      *converter.DisplayFormatter
	exportFilename string
}

func NewDashboardUsecase(
	log *logrus.Logger,
	datasets DatasetProvider,
	resultCache service.DashboardCacheService,
	m *metrics.DashboardMetrics,
	formatter *converter.DisplayFormatter,
	exportFilename string,
) DashboardUsecase {
	return &dashboardUsecase{
		log:            log,
		datasets:       datasets,
		resultCache:    resultCache,
		metrics:        m,
		formatter:      formatter,
		exportFilename: exportFilename,
	}
}

func (u *dashboardUsecase) GetFilterOptions(ctx context.Context) (*dto.FilterOptionsResponse, error) {
	ds, err := u.datasets.Get(ctx)
	if err != nil {
		return nil, err
	}
	return converter.DatasetToOptionsResponse(ds), nil
}

func (u *dashboardUsecase) GetDashboard(ctx context.Context, req *dto.DashboardRequest) (*dto.DashboardResponse, error) {
	ds, err := u.datasets.Get(ctx)
	if err != nil {
		return nil, err
	}

	criteria, err := BuildCriteria(ds, req)
	if err != nil {
		return nil, err
	}

	if cached, ok := u.resultCache.Get(ctx, ds.Fingerprint, criteria); ok {
		u.metrics.ObserveCache(true)
		return converter.DashboardToResponse(ds.Version, criteria, cached.Dashboard, u.formatter), nil
	}
	u.metrics.ObserveCache(false)

	result := u.run(ds, criteria)
	u.resultCache.Set(ctx, ds.Fingerprint, criteria, &service.CachedDashboard{
		Empty:     result.Empty,
		Dashboard: result.Dashboard,
	})

	return converter.DashboardToResponse(ds.Version, criteria, result.Dashboard, u.formatter), nil
}

func (u *dashboardUsecase) Export(ctx context.Context, req *dto.ExportRequest) (*dto.ExportFile, error) {
	ds, err := u.datasets.Get(ctx)
	if err != nil {
		return nil, err
	}

	criteria, err := BuildCriteria(ds, &req.DashboardRequest)
	if err != nil {
		return nil, err
	}

	filtered := analytics.Filter(ds.Records, criteria)
	if len(filtered) == 0 {
		return nil, ErrEmptyFilterResult
	}

	format := req.Format
	if format == "" {
		format = analytics.FormatCSV
	}

	data, err := analytics.Export(filtered, format, req.Display)
	if err != nil {
		if !errors.Is(err, analytics.ErrUnsupportedFormat) {
			u.log.Warnf("Failed to export %d records as %s: %+v", len(filtered), format, err)
		}
		return nil, err
	}
	u.metrics.ObserveExport(format)

	return &dto.ExportFile{
		Filename:    u.exportFilename + "." + format,
		ContentType: analytics.ContentType(format),
		Data:        data,
	}, nil
}

func (u *dashboardUsecase) Refresh(ctx context.Context) (*dto.FilterOptionsResponse, error) {
	u.datasets.Invalidate()
	return u.GetFilterOptions(ctx)
}

func (u *dashboardUsecase) Run(ctx context.Context, criteria entity.FilterCriteria) (analytics.Result, error) {
	if !criteria.Valid() {
		return analytics.Result{}, ErrInvalidDateRange
	}
	ds, err := u.datasets.Get(ctx)
	if err != nil {
		return analytics.Result{}, err
	}
	return u.run(ds, criteria), nil
}

func (u *dashboardUsecase) run(ds *entity.Dataset, criteria entity.FilterCriteria) analytics.Result {
	start := time.Now()
	result := analytics.Run(ds.Records, criteria)
	u.metrics.ObservePipeline(result.Empty, time.Since(start).Seconds())

	if result.Empty {
		u.log.WithFields(logrus.Fields{
			"dataset_version": ds.Version,
			"start":           criteria.DateStart.Format("2006-01-02"),
			"end":             criteria.DateEnd.Format("2006-01-02"),
		}).Info("No appointments match the selected filters")
	}
	return result
}

// BuildCriteria resolves a request against the dataset:
//   - no dates: the dataset's full date range
//   - start only: that single day
//   - end only: from the dataset's first date to end
//   - nil units/specialties: every value present in the dataset
func BuildCriteria(ds *entity.Dataset, req *dto.DashboardRequest) (entity.FilterCriteria, error) {
	opts := ds.Options()

	start, end := opts.MinDate, opts.MaxDate
	switch {
	case req.StartDate != "" && req.EndDate != "":
		var err error
		if start, err = parseDate(req.StartDate); err != nil {
			return entity.FilterCriteria{}, err
		}
		if end, err = parseDate(req.EndDate); err != nil {
			return entity.FilterCriteria{}, err
		}
	case req.StartDate != "":
		var err error
		if start, err = parseDate(req.StartDate); err != nil {
			return entity.FilterCriteria{}, err
		}
		end = start
	case req.EndDate != "":
		var err error
		if end, err = parseDate(req.EndDate); err != nil {
			return entity.FilterCriteria{}, err
		}
	}

	units := req.Units
	if units == nil {
		units = opts.Units
	}
	specialties := req.Specialties
	if specialties == nil {
		specialties = opts.Specialties
	}

	criteria := entity.NewFilterCriteria(start, end, units, specialties)
	if !criteria.Valid() {
		return entity.FilterCriteria{}, ErrInvalidDateRange
	}
	return criteria, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
