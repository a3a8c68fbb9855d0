package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"
)

const (
	blobVersionCurrent = 1
)

var errBlobTooLarge = errors.New("session field too long")

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errBlobTooLarge
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Encode serializes a root session into the versioned binary blob stored in
// Redis. Tabs are written in tab-id order so the output is deterministic.
func Encode(r *RootSession) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(blobVersionCurrent)

	if err := writeString(&buf, r.RootID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, r.RealmID); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.LastAccessAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	if len(r.Tabs) > 0xFFFF {
		return nil, errBlobTooLarge
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Tabs))); err != nil {
		return nil, err
	}

	tabIDs := make([]string, 0, len(r.Tabs))
	for id := range r.Tabs {
		tabIDs = append(tabIDs, id)
	}
	sort.Strings(tabIDs)

	for _, id := range tabIDs {
		if err := encodeTab(&buf, r.Tabs[id]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func encodeTab(buf *bytes.Buffer, t *TabSession) error {
	if err := writeString(buf, t.TabID); err != nil {
		return err
	}
	if err := writeString(buf, t.ClientID); err != nil {
		return err
	}
	if err := writeString(buf, t.UserID); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, t.AuthTime); err != nil {
		return err
	}

	var flags byte
	if t.RequiresReAuth {
		flags |= 0x01
	}
	buf.WriteByte(flags)

	if len(t.Steps) > 0xFFFF {
		return errBlobTooLarge
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(t.Steps))); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, t.Cursor); err != nil {
		return err
	}

	for i := range t.Steps {
		step := &t.Steps[i]
		if err := writeString(buf, step.Type); err != nil {
			return err
		}
		buf.WriteByte(byte(step.Status))
		buf.WriteByte(byte(step.Origin))
		var sf byte
		if step.LogoutOtherSessions {
			sf |= 0x01
		}
		buf.WriteByte(sf)
	}

	return nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*RootSession, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != blobVersionCurrent {
		return nil, errors.New("invalid session blob version")
	}

	r := &RootSession{}

	if r.RootID, err = readString(reader); err != nil {
		return nil, err
	}
	if r.RealmID, err = readString(reader); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.LastAccessAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}

	var tabCount uint16
	if err := binary.Read(reader, binary.BigEndian, &tabCount); err != nil {
		return nil, err
	}

	r.Tabs = make(map[string]*TabSession, tabCount)
	for i := uint16(0); i < tabCount; i++ {
		tab, err := decodeTab(reader)
		if err != nil {
			return nil, err
		}
		tab.RootID = r.RootID
		r.Tabs[tab.TabID] = tab
	}

	return r, nil
}

func decodeTab(reader *bytes.Reader) (*TabSession, error) {
	t := &TabSession{}

	var err error
	if t.TabID, err = readString(reader); err != nil {
		return nil, err
	}
	if t.ClientID, err = readString(reader); err != nil {
		return nil, err
	}
	if t.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &t.AuthTime); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	t.RequiresReAuth = flags&0x01 != 0

	var stepCount uint16
	if err := binary.Read(reader, binary.BigEndian, &stepCount); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &t.Cursor); err != nil {
		return nil, err
	}

	if stepCount > 0 {
		t.Steps = make([]ActionStep, 0, stepCount)
	}
	for i := uint16(0); i < stepCount; i++ {
		var step ActionStep
		if step.Type, err = readString(reader); err != nil {
			return nil, err
		}
		status, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if status > byte(ActionCompleting) {
			return nil, errors.New("invalid step status")
		}
		step.Status = ActionStatus(status)

		origin, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if origin > byte(OriginApplicationInitiated) {
			return nil, errors.New("invalid step origin")
		}
		step.Origin = ActionOrigin(origin)

		sf, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		step.LogoutOtherSessions = sf&0x01 != 0

		t.Steps = append(t.Steps, step)
	}

	return t, nil
}
