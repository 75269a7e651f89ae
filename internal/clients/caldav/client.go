// Package caldav is a thin client for mirroring dated reminders into a
// CalDAV calendar. Sync is strictly one-way: the bot owns the data, the
// calendar is a read-only reflection of it.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	client       *caldav.Client
}

func NewClient(baseURL, username, password, calendarPath string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// IsConfigured reports whether the client has an endpoint and credentials.
func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.username != "" && c.password != ""
}

func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{username: c.username, password: c.password},
		Timeout:   30 * time.Second,
	}
	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}
	c.client = client
	return client, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// resolveCalendarPath returns the configured calendar path, discovering the
// first calendar on the server when none was configured.
func (c *Client) resolveCalendarPath(ctx context.Context) (string, error) {
	if c.calendarPath != "" {
		return c.calendarPath, nil
	}

	client, err := c.connect()
	if err != nil {
		return "", err
	}
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars on server")
	}

	c.calendarPath = cals[0].Path
	return c.calendarPath, nil
}

func (c *Client) eventPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// PutEvent creates or replaces a single event identified by its UID.
func (c *Client) PutEvent(ctx context.Context, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	calendarPath, err := c.resolveCalendarPath(ctx)
	if err != nil {
		return err
	}

	if _, err := client.PutCalendarObject(ctx, c.eventPath(calendarPath, event.UID), eventToICS(event)); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by UID.
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	calendarPath, err := c.resolveCalendarPath(ctx)
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, c.eventPath(calendarPath, uid)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//murmur//reminder sync//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}

	// UTC instants keep server timezone handling out of the picture.
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	end := event.EndTime
	if end.IsZero() {
		end = event.StartTime.Add(time.Hour)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}
