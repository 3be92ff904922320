package world

import (
	"encoding/json"

	"github.com/emberwake/server/internal/script"
)

// capitalizedBrief renders "A rusty sword" style rows for client panels.
func capitalizedBrief(e *Entity) string {
	return script.ToString(e, 'I')
}

// ClientUpdate is one element of the per-tick update batch sent to the
// client. Type discriminates the variant; unused fields are omitted from
// the wire form. Field names are part of the client contract.
type ClientUpdate struct {
	Type string `json:"type"`

	Text    string `json:"text,omitempty"`
	Speaker string `json:"speaker,omitempty"`
	Key     string `json:"key,omitempty"`
	Heading string `json:"heading,omitempty"`

	Lines []string `json:"lines,omitempty"`
	Links []Link   `json:"links,omitempty"`

	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Icon string `json:"icon,omitempty"`
	Slot string `json:"slot,omitempty"`

	Level float64 `json:"level,omitempty"`
	Value float64 `json:"value,omitempty"`
	Race  string  `json:"race,omitempty"`

	Duration float64 `json:"duration,omitempty"`

	Neighbors []NeighborView  `json:"neighbors,omitempty"`
	Neighbor  *NeighborView   `json:"neighbor,omitempty"`
	Items     []ItemView      `json:"items,omitempty"`
	Item      *ItemView       `json:"item,omitempty"`
	Equipment []EquipmentView `json:"equipment,omitempty"`
	Skills    []SkillView     `json:"skills,omitempty"`
	Skill     *SkillView      `json:"skill,omitempty"`
	Attribute *AttributeView  `json:"attribute,omitempty"`
	Attrs     []AttributeView `json:"attributes,omitempty"`
	Quests    []QuestView     `json:"quests,omitempty"`
	Quest     *QuestView      `json:"quest,omitempty"`
	Location  *LocationView   `json:"location,omitempty"`
	Map       *MapView        `json:"map,omitempty"`
	Cells     []MapCell       `json:"cells,omitempty"`
}

// Link is a clickable command shortcut in the client UI.
type Link struct {
	Text    string `json:"text"`
	Command string `json:"command"`
}

// NeighborView is the client's picture of a co-located entity.
type NeighborView struct {
	ID    int64  `json:"id"`
	Brief string `json:"brief"`
	Icon  string `json:"icon,omitempty"`
}

// ItemView is the client's picture of an inventory item.
type ItemView struct {
	ID    int64  `json:"id"`
	Brief string `json:"brief"`
	Icon  string `json:"icon,omitempty"`
	Count int    `json:"count"`
}

// EquipmentView pairs a slot with the item worn there.
type EquipmentView struct {
	Slot  string `json:"slot"`
	ID    int64  `json:"id"`
	Brief string `json:"brief"`
	Icon  string `json:"icon,omitempty"`
}

// SkillView is one skill rank row.
type SkillView struct {
	Skill string `json:"skill"`
	Rank  int    `json:"rank"`
}

// AttributeView is one named numeric attribute.
type AttributeView struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// QuestView is one quest journal row.
type QuestView struct {
	Quest string `json:"quest"`
	Name  string `json:"name"`
	Phase string `json:"phase"`
}

// LocationView is the full location panel state.
type LocationView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Exits       []string `json:"exits,omitempty"`
}

// MapView is the minimap around the avatar.
type MapView struct {
	Radius int       `json:"radius"`
	Cells  []MapCell `json:"cells,omitempty"`
}

// MapCell is one minimap tile.
type MapCell struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Icon string `json:"icon,omitempty"`
	Name string `json:"name,omitempty"`
}

// EncodeBatch serializes one tick's worth of updates as a single frame.
func EncodeBatch(updates []ClientUpdate) ([]byte, error) {
	return json.Marshal(struct {
		Updates []ClientUpdate `json:"updates"`
	}{Updates: updates})
}

func ShowText(text string) ClientUpdate {
	return ClientUpdate{Type: "showText", Text: text}
}

func ShowNotice(text string) ClientUpdate {
	return ClientUpdate{Type: "showNotice", Text: text}
}

func ShowTutorial(key, text string) ClientUpdate {
	return ClientUpdate{Type: "showTutorial", Key: key, Text: text}
}

func ShowError(text string) ClientUpdate {
	return ClientUpdate{Type: "showError", Text: text}
}

func ShowSay(speaker, text string) ClientUpdate {
	return ClientUpdate{Type: "showSay", Speaker: speaker, Text: text}
}

func ShowList(heading string, lines []string) ClientUpdate {
	return ClientUpdate{Type: "showList", Heading: heading, Lines: lines}
}

func ShowLinks(heading string, links []Link) ClientUpdate {
	return ClientUpdate{Type: "showLinks", Heading: heading, Links: links}
}

func ShowLocation(view LocationView) ClientUpdate {
	return ClientUpdate{Type: "showLocation", Location: &view}
}

func SetNeighbors(views []NeighborView) ClientUpdate {
	return ClientUpdate{Type: "setNeighbors", Neighbors: views}
}

func UpdateNeighbor(view NeighborView) ClientUpdate {
	return ClientUpdate{Type: "updateNeighbor", Neighbor: &view}
}

func RemoveNeighbor(id int64) ClientUpdate {
	return ClientUpdate{Type: "removeNeighbor", ID: id}
}

func SetEquipment(views []EquipmentView) ClientUpdate {
	return ClientUpdate{Type: "setEquipment", Equipment: views}
}

func EquipUpdate(view EquipmentView) ClientUpdate {
	return ClientUpdate{Type: "equip", Equipment: []EquipmentView{view}}
}

func UnequipUpdate(slot string) ClientUpdate {
	return ClientUpdate{Type: "unequip", Slot: slot}
}

func SetItems(views []ItemView) ClientUpdate {
	return ClientUpdate{Type: "setItems", Items: views}
}

func UpdateItem(view ItemView) ClientUpdate {
	return ClientUpdate{Type: "updateItem", Item: &view}
}

func RemoveItem(id int64) ClientUpdate {
	return ClientUpdate{Type: "removeItem", ID: id}
}

func SetSkills(views []SkillView) ClientUpdate {
	return ClientUpdate{Type: "setSkills", Skills: views}
}

func UpdateSkill(view SkillView) ClientUpdate {
	return ClientUpdate{Type: "updateSkill", Skill: &view}
}

func RemoveSkill(skill string) ClientUpdate {
	return ClientUpdate{Type: "removeSkill", Key: skill}
}

func SetAttributes(views []AttributeView) ClientUpdate {
	return ClientUpdate{Type: "setAttributes", Attrs: views}
}

func UpdateAttribute(name string, value float64) ClientUpdate {
	return ClientUpdate{Type: "updateAttribute", Attribute: &AttributeView{Name: name, Value: value}}
}

func SetQuests(views []QuestView) ClientUpdate {
	return ClientUpdate{Type: "setQuests", Quests: views}
}

func UpdateQuest(view QuestView) ClientUpdate {
	return ClientUpdate{Type: "updateQuest", Quest: &view}
}

func RemoveQuest(quest string) ClientUpdate {
	return ClientUpdate{Type: "removeQuest", Key: quest}
}

func StartCast(duration float64) ClientUpdate {
	return ClientUpdate{Type: "startCast", Duration: duration}
}

func StopCast() ClientUpdate {
	return ClientUpdate{Type: "stopCast"}
}

func SetMap(view MapView) ClientUpdate {
	return ClientUpdate{Type: "setMap", Map: &view}
}

func UpdateMap(cells []MapCell) ClientUpdate {
	return ClientUpdate{Type: "updateMap", Cells: cells}
}

func SetName(name string) ClientUpdate {
	return ClientUpdate{Type: "setName", Name: name}
}

func SetIcon(icon string) ClientUpdate {
	return ClientUpdate{Type: "setIcon", Icon: icon}
}

func SetLevel(level int) ClientUpdate {
	return ClientUpdate{Type: "setLevel", Level: float64(level)}
}

func SetRace(race string) ClientUpdate {
	return ClientUpdate{Type: "setRace", Race: race}
}

// NeighborViewOf builds the neighbor row for an entity.
func NeighborViewOf(e *Entity) NeighborView {
	v := NeighborView{ID: e.id}
	v.Brief = capitalizedBrief(e)
	if e.thing != nil {
		v.Icon = e.thing.Icon
	}
	return v
}

// ItemViewOf builds the inventory row for an item entity.
func ItemViewOf(e *Entity) ItemView {
	v := ItemView{ID: e.id, Count: 1}
	v.Brief = capitalizedBrief(e)
	if e.thing != nil {
		v.Icon = e.thing.Icon
	}
	if e.item != nil {
		v.Count = e.item.Count
	}
	return v
}

// EquipmentViewOf builds the paper-doll row for a worn item.
func EquipmentViewOf(slot string, e *Entity) EquipmentView {
	v := EquipmentView{Slot: slot, ID: e.id}
	v.Brief = capitalizedBrief(e)
	if e.thing != nil {
		v.Icon = e.thing.Icon
	}
	return v
}
