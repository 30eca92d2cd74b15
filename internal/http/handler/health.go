package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BucketChecker is satisfied by storage.Storage.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// HealthCheck godoc
// @Summary      Readiness check
// @Description  Checks database connectivity and that every bucket exists.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  errorPayload
// @Router       /health [get]
func HealthCheck(db Pinger, store BucketChecker, buckets ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		if db != nil {
			g.Go(func() error { return db.PingContext(gctx) })
		}
		if store != nil {
			for _, bucket := range buckets {
				g.Go(func() error {
					ok, err := store.BucketExists(gctx, bucket)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("bucket %q missing", bucket)
					}
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary  Liveness check
// @Tags     health
// @Success  200
// @Router   /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
