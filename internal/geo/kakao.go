// Package geo turns address text into coordinates and driving distance.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrAddressNotFound = errors.New("address not found")

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one address search hit.
type Place struct {
	AddressName     string `json:"address_name"`
	RoadAddressName string `json:"road_address_name,omitempty"`
	BuildingName    string `json:"building_name,omitempty"`
	ZoneNo          string `json:"zone_no,omitempty"`
	Point           Point  `json:"point"`
}

// Route is a driving estimate in metres and seconds.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
}

type KakaoClient struct {
	restKey       string
	geocodeURL    string
	directionsURL string
	client        *http.Client
}

func NewKakaoClient(restKey, geocodeURL, directionsURL string) *KakaoClient {
	return &KakaoClient{
		restKey:       strings.TrimSpace(restKey),
		geocodeURL:    strings.TrimSpace(geocodeURL),
		directionsURL: strings.TrimSpace(directionsURL),
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

type addressSearchResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"`
		Y           string `json:"y"`
		RoadAddress *struct {
			AddressName  string `json:"address_name"`
			BuildingName string `json:"building_name"`
			ZoneNo       string `json:"zone_no"`
		} `json:"road_address"`
	} `json:"documents"`
}

// Search returns every address matching query, possibly none.
func (c *KakaoClient) Search(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("query", query)

	var resp addressSearchResponse
	if err := c.get(ctx, c.geocodeURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("address search: %w", err)
	}

	places := make([]Place, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		lng, errX := strconv.ParseFloat(d.X, 64)
		lat, errY := strconv.ParseFloat(d.Y, 64)
		if errX != nil || errY != nil {
			continue
		}
		p := Place{AddressName: d.AddressName, Point: Point{Lat: lat, Lng: lng}}
		if d.RoadAddress != nil {
			p.RoadAddressName = d.RoadAddress.AddressName
			p.BuildingName = d.RoadAddress.BuildingName
			p.ZoneNo = d.RoadAddress.ZoneNo
		}
		places = append(places, p)
	}
	return places, nil
}

// Geocode resolves the first search hit of address.
func (c *KakaoClient) Geocode(ctx context.Context, address string) (Point, error) {
	places, err := c.Search(ctx, address)
	if err != nil {
		return Point{}, err
	}
	if len(places) == 0 {
		return Point{}, fmt.Errorf("%q: %w", address, ErrAddressNotFound)
	}
	return places[0].Point, nil
}

type directionsResponse struct {
	Routes []struct {
		ResultCode int    `json:"result_code"`
		ResultMsg  string `json:"result_msg"`
		Summary    struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// Directions asks for the driving route between two points.
func (c *KakaoClient) Directions(ctx context.Context, from, to Point) (Route, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", from.Lng, from.Lat))
	q.Set("destination", fmt.Sprintf("%f,%f", to.Lng, to.Lat))

	var resp directionsResponse
	if err := c.get(ctx, c.directionsURL+"?"+q.Encode(), &resp); err != nil {
		return Route{}, fmt.Errorf("directions: %w", err)
	}
	if len(resp.Routes) == 0 {
		return Route{}, errors.New("directions: no route")
	}
	r := resp.Routes[0]
	if r.ResultCode != 0 {
		return Route{}, fmt.Errorf("directions: result_code=%d %s", r.ResultCode, r.ResultMsg)
	}
	return Route{DistanceMeters: r.Summary.Distance, DurationSeconds: r.Summary.Duration}, nil
}

func (c *KakaoClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.restKey)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return fmt.Errorf("status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
