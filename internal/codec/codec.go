// Package codec converts mission plans to and from the compact text the
// vehicle controller understands.
//
// A mission message is the tag "m" followed by "lat,lng" pairs joined with
// "&". An operator position report is "p" followed by a single pair.
// Coordinates are plain decimals: an optional sign, digits and at most one
// point. Exponents, hex floats, digit separators and NaN/Inf are rejected.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/groundlink/missionmap/pkg/core"
)

const (
	// MissionTag prefixes every mission message.
	MissionTag = "m"
	// PositionTag prefixes an operator position report.
	PositionTag = "p"
	// Delimiter separates points in a mission message.
	Delimiter = "&"
	// legacyDelimiter is accepted by Decode for plans stored by older stations.
	legacyDelimiter = "|"
)

var (
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrInsufficientCorners = errors.New("insufficient corners")
	ErrMalformedToken      = errors.New("malformed waypoint token")
	ErrUnknownMessage      = errors.New("unknown message type")
)

// Source is anything holding a plan: waypoint positions and region corners.
type Source interface {
	Points() []core.GeoPoint
	Corners() []core.GeoPoint
}

// Encode serializes src as a path mission when asPath is set and as a
// region mission otherwise.
func Encode(src Source, asPath bool) (string, error) {
	if asPath {
		return EncodePath(src.Points()), nil
	}
	return EncodeRegion(src.Corners())
}

// EncodePath joins every point in order.
func EncodePath(points []core.GeoPoint) string {
	var sb strings.Builder
	sb.WriteString(MissionTag)
	for i, p := range points {
		if i > 0 {
			sb.WriteString(Delimiter)
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

// EncodeRegion joins the first two corners. Fewer than two is an error.
func EncodeRegion(corners []core.GeoPoint) (string, error) {
	if len(corners) < 2 {
		return "", fmt.Errorf("%w: have %d, need 2", ErrInsufficientCorners, len(corners))
	}
	return EncodePath(corners[:2]), nil
}

// EncodePosition renders an operator position report.
func EncodePosition(p core.GeoPoint) string {
	return PositionTag + p.String()
}

// Decode parses a mission message into its points. The leading tag is
// optional and empty tokens are skipped, so "1,2|3,4|" yields two points.
// A message uses one delimiter throughout.
// Decoding is all-or-nothing: any bad token fails the whole message.
func Decode(text string) ([]core.GeoPoint, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, MissionTag)

	sep := Delimiter
	if strings.Contains(text, legacyDelimiter) {
		if strings.Contains(text, Delimiter) {
			return nil, fmt.Errorf("%w: mixes %q and %q", ErrMalformedToken, Delimiter, legacyDelimiter)
		}
		sep = legacyDelimiter
	}
	tokens := strings.Split(text, sep)

	points := make([]core.GeoPoint, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		p, err := parseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("token %d %q: %w", i, tok, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// MessageKind classifies an inbound console message.
type MessageKind string

const (
	KindMission  MessageKind = "mission"
	KindPosition MessageKind = "position"
)

// Message is a decoded console message.
type Message struct {
	Kind   MessageKind     `json:"kind"`
	Points []core.GeoPoint `json:"points"`
}

// Parse decodes a tagged console message. Mission messages may hold any
// number of points; position reports hold exactly one.
func Parse(msg string) (Message, error) {
	msg = strings.TrimSpace(msg)
	switch {
	case strings.HasPrefix(msg, MissionTag):
		pts, err := Decode(msg)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindMission, Points: pts}, nil
	case strings.HasPrefix(msg, PositionTag):
		p, err := parseToken(strings.TrimPrefix(msg, PositionTag))
		if err != nil {
			return Message{}, fmt.Errorf("position %q: %w", msg, err)
		}
		return Message{Kind: KindPosition, Points: []core.GeoPoint{p}}, nil
	}
	return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, msg)
}

// Items numbers points from 1 and gives each the altitude alt, the way the
// controller builds its waypoint table.
func Items(points []core.GeoPoint, alt float64) []core.MissionItem {
	items := make([]core.MissionItem, len(points))
	for i, p := range points {
		items[i] = core.MissionItem{Seq: i + 1, Lat: p.Lat, Lng: p.Lng, Alt: alt}
	}
	return items
}

func parseToken(tok string) (core.GeoPoint, error) {
	fields := strings.Split(tok, ",")
	if len(fields) != 2 {
		return core.GeoPoint{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedToken, len(fields))
	}
	lat, err := parseDecimal(strings.TrimSpace(fields[0]))
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: latitude: %v", ErrMalformedToken, err)
	}
	lng, err := parseDecimal(strings.TrimSpace(fields[1]))
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: longitude: %v", ErrMalformedToken, err)
	}
	p := core.GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}
	return p, nil
}

// parseDecimal accepts [+-]digits[.digits] and [+-].digits only.
func parseDecimal(s string) (float64, error) {
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 {
		return 0, fmt.Errorf("%q is not a decimal", s)
	}
	digits, dots := 0, 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return 0, fmt.Errorf("%q is not a decimal", s)
		}
	}
	if digits == 0 || dots > 1 {
		return 0, fmt.Errorf("%q is not a decimal", s)
	}
	return strconv.ParseFloat(s, 64)
}
