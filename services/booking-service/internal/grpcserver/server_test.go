package grpcserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/glowstudio/studio/libs/grpcx"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeAvailability struct {
	slots    []availability.Minute
	slotsErr error
	checkErr error
}

func (f *fakeAvailability) AvailableSlots(context.Context, time.Time) ([]availability.Minute, error) {
	return f.slots, f.slotsErr
}

func (f *fakeAvailability) Check(_ context.Context, _ time.Time, start availability.Minute, serviceID string) (availability.Interval, model.Service, error) {
	if serviceID == "missing" {
		return availability.Interval{}, model.Service{}, booking.ErrServiceNotFound
	}
	return availability.Interval{Start: start, End: start.Add(60)}, model.Service{ID: serviceID, DurationMinutes: 60}, f.checkErr
}

func startServer(t *testing.T, svc Availability) *grpc.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := grpcx.NewServer(logger)
	Register(srv, svc, 30, logger)
	grpcx.Serve(ctx, logger, srv, lis)

	conn, err := grpcx.Dial(context.Background(), lis.Addr().String(), grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), method, req, out)
	return out, err
}

func TestGetSlots(t *testing.T) {
	conn := startServer(t, &fakeAvailability{slots: []availability.Minute{540, 600}})

	out, err := call(t, conn, GetSlotsMethod, map[string]any{"date": "2026-03-02"})
	if err != nil {
		t.Fatalf("GetSlots: %v", err)
	}
	slots := out.GetFields()["slots"].GetListValue().GetValues()
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	second := slots[1].GetStructValue().GetFields()
	if second["start_time"].GetStringValue() != "10:00" || second["end_time"].GetStringValue() != "10:30" {
		t.Fatalf("unexpected slot %v", second)
	}
	if out.GetFields()["granularity_minutes"].GetNumberValue() != 30 {
		t.Fatalf("unexpected granularity %v", out.GetFields()["granularity_minutes"])
	}
}

func TestGetSlotsErrors(t *testing.T) {
	conn := startServer(t, &fakeAvailability{slotsErr: errors.New("db down")})

	_, err := call(t, conn, GetSlotsMethod, map[string]any{"date": "not-a-date"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	_, err = call(t, conn, GetSlotsMethod, map[string]any{"date": "2026-03-02"})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestValidateBooking(t *testing.T) {
	fake := &fakeAvailability{}
	conn := startServer(t, fake)
	req := map[string]any{"date": "2026-03-02", "start_time": "10:00", "service_id": "svc-1"}

	out, err := call(t, conn, ValidateBookingMethod, req)
	if err != nil {
		t.Fatalf("ValidateBooking: %v", err)
	}
	if !out.GetFields()["available"].GetBoolValue() || out.GetFields()["end_time"].GetStringValue() != "11:00" {
		t.Fatalf("expected available candidate, got %v", out.AsMap())
	}

	fake.checkErr = &availability.ConflictError{Reason: availability.ReasonBookingConflict}
	out, err = call(t, conn, ValidateBookingMethod, req)
	if err != nil {
		t.Fatalf("ValidateBooking: %v", err)
	}
	if out.GetFields()["available"].GetBoolValue() || out.GetFields()["reason"].GetStringValue() != "booking_conflict" {
		t.Fatalf("expected booking_conflict, got %v", out.AsMap())
	}

	fake.checkErr = booking.ErrOutsideBusinessHours
	out, err = call(t, conn, ValidateBookingMethod, req)
	if err != nil || out.GetFields()["reason"].GetStringValue() != "outside_business_hours" {
		t.Fatalf("expected outside_business_hours, got %v %v", out.AsMap(), err)
	}

	_, err = call(t, conn, ValidateBookingMethod, map[string]any{"date": "2026-03-02", "start_time": "10:00", "service_id": "missing"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	_, err = call(t, conn, ValidateBookingMethod, map[string]any{"date": "2026-03-02", "start_time": "10:00"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
