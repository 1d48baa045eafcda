package whoop

import (
	"context"
	"net/http"
	"strconv"
)

const (
	routeProfile  = "/v2/user/profile/basic"
	routeBody     = "/v2/user/measurement/body"
	routeCycle    = "/v2/cycle"
	routeRecovery = "/v2/recovery"
	routeSleep    = "/v2/activity/sleep"
	routeWorkout  = "/v2/activity/workout"
)

type UserService interface {
	GetProfile(ctx context.Context) (*UserProfile, error)
	GetBodyMeasurement(ctx context.Context) (*BodyMeasurement, error)
}

type CycleService interface {
	Get(ctx context.Context, id int64) (*Cycle, error)
	List(ctx context.Context, params *ListParams) (*PaginatedResponse[Cycle], error)
}

type RecoveryService interface {
	List(ctx context.Context, params *ListParams) (*PaginatedResponse[Recovery], error)
}

type SleepService interface {
	List(ctx context.Context, params *ListParams) (*PaginatedResponse[Sleep], error)
}

type WorkoutService interface {
	List(ctx context.Context, params *ListParams) (*PaginatedResponse[Workout], error)
}

func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var v T
	if err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func list[T any](ctx context.Context, c *Client, route string, params *ListParams) (*PaginatedResponse[T], error) {
	var resp PaginatedResponse[T]
	if err := c.do(ctx, http.MethodGet, route, params.values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type userService struct{ client *Client }

func (s *userService) GetProfile(ctx context.Context) (*UserProfile, error) {
	return get[UserProfile](ctx, s.client, routeProfile)
}

func (s *userService) GetBodyMeasurement(ctx context.Context) (*BodyMeasurement, error) {
	return get[BodyMeasurement](ctx, s.client, routeBody)
}

type cycleService struct{ client *Client }

func (s *cycleService) Get(ctx context.Context, id int64) (*Cycle, error) {
	return get[Cycle](ctx, s.client, routeCycle+"/"+strconv.FormatInt(id, 10))
}

func (s *cycleService) List(ctx context.Context, params *ListParams) (*PaginatedResponse[Cycle], error) {
	return list[Cycle](ctx, s.client, routeCycle, params)
}

type recoveryService struct{ client *Client }

func (s *recoveryService) List(ctx context.Context, params *ListParams) (*PaginatedResponse[Recovery], error) {
	return list[Recovery](ctx, s.client, routeRecovery, params)
}

type sleepService struct{ client *Client }

func (s *sleepService) List(ctx context.Context, params *ListParams) (*PaginatedResponse[Sleep], error) {
	return list[Sleep](ctx, s.client, routeSleep, params)
}

type workoutService struct{ client *Client }

func (s *workoutService) List(ctx context.Context, params *ListParams) (*PaginatedResponse[Workout], error) {
	return list[Workout](ctx, s.client, routeWorkout, params)
}
