package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName           = "studio.availability.v1.Availability"
	GetSlotsMethod        = "/" + ServiceName + "/GetSlots"
	ValidateBookingMethod = "/" + ServiceName + "/ValidateBooking"
)

// Availability is the read side of the booking service exposed to internal callers.
type Availability interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]availability.Minute, error)
	Check(ctx context.Context, date time.Time, start availability.Minute, serviceID string) (availability.Interval, model.Service, error)
}

type availabilityServer interface {
	GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type server struct {
	svc         Availability
	granularity int
	logger      *slog.Logger
}

func Register(grpcServer *grpc.Server, svc Availability, granularity int, logger *slog.Logger) {
	if granularity <= 0 {
		granularity = availability.DefaultGranularityMinutes
	}
	grpcServer.RegisterService(&serviceDesc, &server{svc: svc, granularity: granularity, logger: logger})
}

// GetSlots expects {"date":"YYYY-MM-DD"} and returns the free slot starts for that day.
func (s *server) GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date, err := availability.ParseDate(field(req, "date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	slots, err := s.svc.AvailableSlots(ctx, date)
	if err != nil {
		s.logger.Error("grpc slot computation failed", "err", err)
		return nil, status.Error(codes.Unavailable, "availability unavailable")
	}

	items := make([]any, 0, len(slots))
	for _, m := range slots {
		items = append(items, map[string]any{
			"start_time": m.String(),
			"end_time":   m.Add(s.granularity).String(),
		})
	}
	return structpb.NewStruct(map[string]any{
		"date":                date.Format(availability.DateLayout),
		"granularity_minutes": s.granularity,
		"slots":               items,
	})
}

// ValidateBooking expects {"date","start_time","service_id"} and reports whether
// the candidate could be booked right now. Nothing is written.
func (s *server) ValidateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	serviceID := field(req, "service_id")
	if serviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "service_id required")
	}
	date, err := availability.ParseDate(field(req, "date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	start, err := availability.ParseClock(field(req, "start_time"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	span, svc, err := s.svc.Check(ctx, date, start, serviceID)
	out := map[string]any{
		"available":  err == nil,
		"service_id": serviceID,
		"date":       date.Format(availability.DateLayout),
		"start_time": start.String(),
	}
	if span.Valid() {
		out["end_time"] = span.End.String()
		out["duration_minutes"] = svc.DurationMinutes
	}
	if err != nil {
		reason, ok := rejection(err)
		if !ok {
			return nil, statusFor(err, s.logger)
		}
		out["reason"] = reason
	}
	return structpb.NewStruct(out)
}

func field(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

// rejection reports the reason for outcomes that mean "not bookable" rather than a failed call.
func rejection(err error) (string, bool) {
	var conflict *availability.ConflictError
	switch {
	case errors.As(err, &conflict):
		return string(conflict.Reason), true
	case errors.Is(err, booking.ErrOutsideBusinessHours):
		return "outside_business_hours", true
	case errors.Is(err, booking.ErrInPast):
		return "in_past", true
	}
	return "", false
}

func statusFor(err error, logger *slog.Logger) error {
	switch {
	case errors.Is(err, booking.ErrServiceNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, availability.ErrInvalidTime), errors.Is(err, availability.ErrInvalidDuration):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	logger.Error("grpc availability check failed", "err", err)
	return status.Error(codes.Unavailable, "availability check failed")
}

func getSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(availabilityServer).GetSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetSlotsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(availabilityServer).GetSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func validateBookingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(availabilityServer).ValidateBooking(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateBookingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(availabilityServer).ValidateBooking(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*availabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSlots", Handler: getSlotsHandler},
		{MethodName: "ValidateBooking", Handler: validateBookingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studio/availability/v1/availability.proto",
}
