package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-coffee-finder/internal/container"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

func init() {
	var (
		query    string
		radius   float64
		lat, lng float64
		location string
	)

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover coffee shops around a point and store them",
		RunE: func(cmd *cobra.Command, args []string) error {
			center, err := centerFromFlags(cmd, lat, lng)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				result := c.DiscoveryService.Discover(cmd.Context(), query, center, radiusOrDefault(radius, c))
				return printJSON(os.Stdout, result)
			})
		},
	}
	discoverCmd.Flags().StringVarP(&query, "query", "q", "coffee", "Search text sent to the places provider")
	discoverCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (required)")
	discoverCmd.Flags().Float64Var(&lng, "lng", 0, "Longitude (required)")
	discoverCmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Radius in meters (defaults to search.discoverRadiusMeters)")
	_ = discoverCmd.MarkFlagRequired("lat")
	_ = discoverCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(discoverCmd)

	byLocationCmd := &cobra.Command{
		Use:   "discover-by-location",
		Short: "Geocode a location and discover coffee shops around it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(c *container.Container) error {
				result := c.DiscoveryService.DiscoverByLocation(cmd.Context(), query, location, radiusOrDefault(radius, c))
				return printJSON(os.Stdout, result)
			})
		},
	}
	byLocationCmd.Flags().StringVarP(&query, "query", "q", "coffee", "Search text sent to the places provider")
	byLocationCmd.Flags().StringVarP(&location, "location", "l", "", "Free text location, e.g. \"Austin, TX\" (required)")
	byLocationCmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Radius in meters (defaults to search.discoverRadiusMeters)")
	_ = byLocationCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(byLocationCmd)

	refreshCmd := &cobra.Command{
		Use:   "refresh SHOP_ID",
		Short: "Re-fetch a stored shop from the places provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid shop id %q: %w", args[0], err)
			}
			return withContainer(cmd.Context(), func(c *container.Container) error {
				s, err := c.DiscoveryService.Refresh(cmd.Context(), id)
				if err != nil {
					return err
				}
				if s == nil {
					return errors.New("coffee shop not found")
				}
				return printJSON(os.Stdout, s)
			})
		},
	}
	rootCmd.AddCommand(refreshCmd)
}

func centerFromFlags(cmd *cobra.Command, lat, lng float64) (*types.Coordinate, error) {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return nil, errors.New("--lat and --lng required")
	}
	center := types.Coordinate{Latitude: lat, Longitude: lng}
	if !center.Valid() {
		return nil, fmt.Errorf("coordinate %s is out of range", center)
	}
	return &center, nil
}

func radiusOrDefault(radius float64, c *container.Container) float64 {
	if radius > 0 {
		return radius
	}
	return c.Config.Search.DiscoverRadius
}
