package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// ID is an opaque identifier issued by the remote API. The API is not
// consistent about quoting ids, so both 1 and "1" decode to ID("1").
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("identity: invalid id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identity: invalid id %s: %w", data, err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("identity: invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// GroupMembership is a user's membership of a savings/lending group.
type GroupMembership struct {
	GroupID   ID        `json:"group_id"`
	GroupName string    `json:"group_name,omitempty"`
	JoinedAt  time.Time `json:"joined_at,omitempty"`
}

// Identity is the authenticated principal as returned by the API.
type Identity struct {
	ID      ID                `json:"id"`
	Name    string            `json:"name,omitempty"`
	Email   string            `json:"email,omitempty"`
	Role    Role              `json:"role"`
	Phone   string            `json:"phone,omitempty"`
	Address string            `json:"address,omitempty"`
	Avatar  string            `json:"avatar,omitempty"`
	Groups  []GroupMembership `json:"groups,omitempty"`
}

// Clone returns a deep copy so callers can never alias the controller's copy.
func (i Identity) Clone() Identity {
	i.Groups = slices.Clone(i.Groups)
	return i
}

// GroupIDs returns the ids of every group the identity belongs to, in
// membership order.
func (i Identity) GroupIDs() []ID {
	ids := make([]ID, 0, len(i.Groups))
	for _, g := range i.Groups {
		ids = append(ids, g.GroupID)
	}
	return ids
}

func (i Identity) HasGroup(groupID ID) bool {
	for _, g := range i.Groups {
		if g.GroupID == groupID {
			return true
		}
	}
	return false
}

func (i Identity) IsStaff() bool {
	return i.Role.IsStaff()
}

// DisplayName falls back to the email when no name was provided.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// ProfilePatch carries the editable profile fields. Nil fields are left
// untouched by the API.
type ProfilePatch struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Avatar  *string `json:"avatar,omitempty"`
}

func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil && p.Avatar == nil
}

// ApplyTo returns a copy of id with the patch applied.
func (p ProfilePatch) ApplyTo(id Identity) Identity {
	out := id.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	if p.Address != nil {
		out.Address = *p.Address
	}
	if p.Avatar != nil {
		out.Avatar = *p.Avatar
	}
	return out
}
