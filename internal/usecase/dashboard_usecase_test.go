package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"clinic-dashboard/internal/analytics"
	"clinic-dashboard/internal/converter"
	"clinic-dashboard/internal/delivery/dto"
	"clinic-dashboard/internal/domain/entity"
	"clinic-dashboard/internal/domain/repository"
	"clinic-dashboard/internal/infrastructure/metrics"
	"clinic-dashboard/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDatasets struct {
	dataset     *entity.Dataset
	err         error
	invalidated int
}

func (s *stubDatasets) Get(ctx context.Context) (*entity.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

func (s *stubDatasets) Invalidate() {
	s.invalidated++
	s.dataset.Version++
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func record(date, unit, specialty, value string) entity.Appointment {
	return entity.Appointment{
		Date:          day(date),
		Unit:          unit,
		SpecialtyType: specialty,
		Doctor:        "Dr. " + unit,
		Value:         decimal.NewNullDecimal(decimal.RequireFromString(value)),
		ReturnVisit:   "0",
	}
}

// staticRepository serves a fixed dataset, standing in for one process's
// view of the source file.
type staticRepository struct {
	records []entity.Appointment
}

func (r *staticRepository) Load(ctx context.Context) (*entity.Dataset, error) {
	return &entity.Dataset{Source: r.Source(), Records: r.records}, nil
}

func (r *staticRepository) Source() string {
	return "consultas.csv"
}

func testDataset() *entity.Dataset {
	return &entity.Dataset{
		Source:  "consultas.csv",
		Version: 1,
		Records: []entity.Appointment{
			record("2024-01-01", "A", "X", "100"),
			record("2024-01-02", "B", "Y", "50"),
			record("2024-01-05", "A", "Y", "25"),
		},
	}
}

func newTestUsecase(t *testing.T, datasets DatasetProvider, cache service.DashboardCacheService) (DashboardUsecase, *metrics.DashboardMetrics) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	if cache == nil {
		cache = service.NewDashboardCacheService(nil, time.Minute, log)
	}
	m := metrics.NewDashboardMetrics(prometheus.NewRegistry())
	return NewDashboardUsecase(log, datasets, cache, m, converter.NewDisplayFormatter("pt-BR"), "consultas_filtradas"), m
}

func TestBuildCriteria(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name            string
		req             dto.DashboardRequest
		wantStart       string
		wantEnd         string
		wantUnits       int
		wantSpecialties int
		wantErr         error
	}{
		{
			name:            "defaults to dataset bounds and all values",
			req:             dto.DashboardRequest{},
			wantStart:       "2024-01-01",
			wantEnd:         "2024-01-05",
			wantUnits:       2,
			wantSpecialties: 2,
		},
		{
			name:            "start only is a single day",
			req:             dto.DashboardRequest{StartDate: "2024-01-02"},
			wantStart:       "2024-01-02",
			wantEnd:         "2024-01-02",
			wantUnits:       2,
			wantSpecialties: 2,
		},
		{
			name:            "end only starts at dataset minimum",
			req:             dto.DashboardRequest{EndDate: "2024-01-03"},
			wantStart:       "2024-01-01",
			wantEnd:         "2024-01-03",
			wantUnits:       2,
			wantSpecialties: 2,
		},
		{
			name:            "explicit empty lists are kept",
			req:             dto.DashboardRequest{Units: []string{}, Specialties: []string{"X"}},
			wantStart:       "2024-01-01",
			wantEnd:         "2024-01-05",
			wantUnits:       0,
			wantSpecialties: 1,
		},
		{
			name:    "inverted range",
			req:     dto.DashboardRequest{StartDate: "2024-01-05", EndDate: "2024-01-01"},
			wantErr: ErrInvalidDateRange,
		},
		{
			name:    "malformed date",
			req:     dto.DashboardRequest{StartDate: "05/01/2024"},
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, err := BuildCriteria(ds, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, day(tt.wantStart), criteria.DateStart)
			assert.Equal(t, day(tt.wantEnd), criteria.DateEnd)
			assert.Len(t, criteria.Units, tt.wantUnits)
			assert.Len(t, criteria.Specialties, tt.wantSpecialties)
		})
	}
}

func TestDashboardUsecase_GetDashboard(t *testing.T) {
	uc, m := newTestUsecase(t, &stubDatasets{dataset: testDataset()}, nil)

	resp, err := uc.GetDashboard(context.Background(), &dto.DashboardRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
	})
	require.NoError(t, err)

	assert.False(t, resp.Empty)
	require.NotNil(t, resp.Metrics)
	assert.True(t, resp.Metrics.TotalRevenue.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, resp.Metrics.TotalAppointments)
	assert.True(t, resp.Metrics.AverageValue.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "R$ 150,00", resp.Metrics.TotalRevenueDisplay)
	assert.Equal(t, uint64(1), resp.DatasetVersion)
	require.NotNil(t, resp.Charts)
	assert.Len(t, resp.Charts.RevenueByUnit, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns("ok")))
}

func TestDashboardUsecase_GetDashboardEmpty(t *testing.T) {
	uc, m := newTestUsecase(t, &stubDatasets{dataset: testDataset()}, nil)

	resp, err := uc.GetDashboard(context.Background(), &dto.DashboardRequest{
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-05",
		Units:       []string{"A"},
		Specialties: []string{"Z"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Empty)
	assert.Equal(t, analytics.EmptyResultNotice, resp.Notice)
	assert.Nil(t, resp.Metrics)
	assert.Nil(t, resp.Charts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns("empty")))
}

func TestDashboardUsecase_GetDashboardUsesResultCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	datasets := &stubDatasets{dataset: testDataset()}
	uc, m := newTestUsecase(t, datasets, service.NewDashboardCacheService(client, time.Minute, log))

	req := &dto.DashboardRequest{Units: []string{"A"}}
	first, err := uc.GetDashboard(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.GetDashboard(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Metrics.TotalAppointments, second.Metrics.TotalAppointments)
	assert.True(t, first.Metrics.TotalRevenue.Equal(second.Metrics.TotalRevenue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns("ok")))
}

func TestDashboardUsecase_SharedResultCacheFollowsContent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	// Two processes sharing one Redis, each at dataset version 1 but with
	// different file content.
	newProcess := func(value string) DashboardUsecase {
		datasets := service.NewDatasetCache(
			&staticRepository{records: []entity.Appointment{record("2024-01-01", "A", "X", value)}},
			log,
			metrics.NewDashboardMetrics(prometheus.NewRegistry()),
		)
		t.Cleanup(datasets.Stop)
		uc, _ := newTestUsecase(t, datasets, service.NewDashboardCacheService(client, time.Minute, log))
		return uc
	}

	req := &dto.DashboardRequest{}

	before, err := newProcess("100").GetDashboard(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, before.Metrics)
	assert.Equal(t, uint64(1), before.DatasetVersion)
	assert.Equal(t, "100", before.Metrics.TotalRevenue.String())

	after, err := newProcess("999").GetDashboard(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, after.Metrics)
	assert.Equal(t, uint64(1), after.DatasetVersion)
	assert.Equal(t, "999", after.Metrics.TotalRevenue.String())

	assert.Len(t, mr.Keys(), 2)
}

func TestDashboardUsecase_DataSourceError(t *testing.T) {
	sourceErr := &repository.DataSourceError{Source: "consultas.csv", Err: errors.New("missing")}
	uc, _ := newTestUsecase(t, &stubDatasets{err: sourceErr}, nil)

	_, err := uc.GetDashboard(context.Background(), &dto.DashboardRequest{})
	assert.ErrorIs(t, err, repository.ErrDataSource)

	_, err = uc.GetFilterOptions(context.Background())
	assert.ErrorIs(t, err, repository.ErrDataSource)
}

func TestDashboardUsecase_Export(t *testing.T) {
	uc, m := newTestUsecase(t, &stubDatasets{dataset: testDataset()}, nil)

	file, err := uc.Export(context.Background(), &dto.ExportRequest{
		DashboardRequest: dto.DashboardRequest{Units: []string{"A"}},
		Display:          true,
	})
	require.NoError(t, err)

	assert.Equal(t, "consultas_filtradas.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.Columns, rows[0])
	assert.Equal(t, "01/01/2024", rows[1][0])
	assert.Equal(t, "05/01/2024", rows[2][0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports("csv")))

	xlsx, err := uc.Export(context.Background(), &dto.ExportRequest{Format: analytics.FormatXLSX})
	require.NoError(t, err)
	assert.Equal(t, "consultas_filtradas.xlsx", xlsx.Filename)
	assert.NotEmpty(t, xlsx.Data)
}

func TestDashboardUsecase_ExportEmptyResult(t *testing.T) {
	uc, _ := newTestUsecase(t, &stubDatasets{dataset: testDataset()}, nil)

	_, err := uc.Export(context.Background(), &dto.ExportRequest{
		DashboardRequest: dto.DashboardRequest{Specialties: []string{}},
	})
	assert.ErrorIs(t, err, ErrEmptyFilterResult)
}

func TestDashboardUsecase_Refresh(t *testing.T) {
	datasets := &stubDatasets{dataset: testDataset()}
	uc, _ := newTestUsecase(t, datasets, nil)

	options, err := uc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, datasets.invalidated)
	assert.Equal(t, uint64(2), options.DatasetVersion)
	assert.Equal(t, 3, options.Records)
	assert.Equal(t, []string{"A", "B"}, options.Units)
	assert.Equal(t, "2024-01-01", options.MinDate)
	assert.Equal(t, "2024-01-05", options.MaxDate)
}

func TestDashboardUsecase_Run(t *testing.T) {
	uc, _ := newTestUsecase(t, &stubDatasets{dataset: testDataset()}, nil)

	result, err := uc.Run(context.Background(), entity.NewFilterCriteria(day("2024-01-01"), day("2024-01-02"), []string{"A"}, []string{"X", "Y"}))
	require.NoError(t, err)
	require.False(t, result.Empty)
	assert.True(t, result.Dashboard.Metrics.TotalRevenue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, result.Dashboard.Metrics.TotalAppointments)

	_, err = uc.Run(context.Background(), entity.NewFilterCriteria(day("2024-01-02"), day("2024-01-01"), nil, nil))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
