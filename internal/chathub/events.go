package chathub

import (
	"errors"

	"linkup/backend/internal/models"

	"github.com/valyala/fastjson"
)

var errMissingEvent = errors.New("frame missing event field")

var framePool fastjson.ParserPool

// decodeClientEvent parses an inbound WebSocket frame. fastjson keeps the hot
// read path allocation-light; optional fields stay nil when absent so the
// message validator can distinguish "missing" from "empty".
func decodeClientEvent(frame []byte) (models.ClientEvent, error) {
	p := framePool.Get()
	defer framePool.Put(p)

	v, err := p.ParseBytes(frame)
	if err != nil {
		return models.ClientEvent{}, err
	}

	ev := models.ClientEvent{
		Event:  string(v.GetStringBytes("event")),
		RoomID: string(v.GetStringBytes("room_id")),
		Type:   string(v.GetStringBytes("type")),
	}
	if ev.Event == "" {
		return models.ClientEvent{}, errMissingEvent
	}

	if t := v.Get("text"); t != nil {
		text := string(t.GetStringBytes())
		ev.Text = &text
	}
	if u := v.Get("file_url"); u != nil {
		url := string(u.GetStringBytes())
		ev.FileURL = &url
	}
	if n := v.Get("file_name"); n != nil {
		name := string(n.GetStringBytes())
		ev.FileName = &name
	}
	if sz := v.Get("file_size"); sz != nil {
		size := sz.GetInt64()
		ev.FileSize = &size
	}
	return ev, nil
}
