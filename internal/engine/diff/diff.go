// Package diff compares two extracted type model graphs and classifies every
// API difference as additive, removed, or modified, with a breaking verdict
// per change. Identity follows canonical signatures: methods and
// constructors are keyed by their full formatted signature (a new overload is
// an addition, not a modification), while properties, fields, events and
// enum values are keyed by name.
package diff

import (
	"fmt"
	"sort"

	"surface/internal/engine/model"
)

type ChangeKind string

const (
	Added    ChangeKind = "Added"
	Removed  ChangeKind = "Removed"
	Modified ChangeKind = "Modified"
)

type Category string

const (
	CategoryType        Category = "type"
	CategoryConstructor Category = "constructor"
	CategoryMethod      Category = "method"
	CategoryProperty    Category = "property"
	CategoryField       Category = "field"
	CategoryEvent       Category = "event"
	CategoryEnumValue   Category = "enum_value"
)

// ApiChange is one detected difference. OldSignature is present unless the
// change is an addition; NewSignature is present unless it is a removal.
type ApiChange struct {
	Kind         ChangeKind `json:"kind"`
	Category     Category   `json:"category"`
	TypeName     string     `json:"type_name"`
	OldSignature string     `json:"old_signature,omitempty"`
	NewSignature string     `json:"new_signature,omitempty"`
	Breaking     bool       `json:"breaking"`
	Reason       string     `json:"reason"`
}

// Summary aggregates a change list into the counters tool callers bucket by.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Breaking int `json:"breaking"`
}

func Summarize(changes []ApiChange) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Kind {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		}
		if c.Breaking {
			s.Breaking++
		}
	}
	return s
}

// Compare diffs two exported-type maps (old against new). It is reflexive:
// comparing a graph against itself yields an empty list. Types present only
// on one side are reported as one type-level change without descending into
// their members.
func Compare(oldTypes, newTypes map[string]*model.TypeModel) []ApiChange {
	var changes []ApiChange

	for name, oldType := range oldTypes {
		if _, ok := newTypes[name]; !ok {
			changes = append(changes, ApiChange{
				Kind:         Removed,
				Category:     CategoryType,
				TypeName:     name,
				OldSignature: oldType.Header,
				Breaking:     true,
				Reason:       fmt.Sprintf("type %s was removed", name),
			})
		}
	}

	for name, newType := range newTypes {
		if _, ok := oldTypes[name]; !ok {
			changes = append(changes, ApiChange{
				Kind:         Added,
				Category:     CategoryType,
				TypeName:     name,
				NewSignature: newType.Header,
				Breaking:     false,
				Reason:       fmt.Sprintf("type %s was added", name),
			})
		}
	}

	for name, oldType := range oldTypes {
		newType, ok := newTypes[name]
		if !ok {
			continue
		}
		changes = append(changes, compareType(oldType, newType)...)
	}

	sortChanges(changes)
	return changes
}

func compareType(oldType, newType *model.TypeModel) []ApiChange {
	var changes []ApiChange
	name := oldType.FullName

	// Kind or modifier changes surface as one type-level modification.
	if oldType.Header != newType.Header {
		changes = append(changes, ApiChange{
			Kind:         Modified,
			Category:     CategoryType,
			TypeName:     name,
			OldSignature: oldType.Header,
			NewSignature: newType.Header,
			Breaking:     true,
			Reason:       fmt.Sprintf("declaration of %s changed", name),
		})
	}

	changes = append(changes, compareBySignature(name, CategoryConstructor, oldType.Constructors, newType.Constructors)...)
	changes = append(changes, compareBySignature(name, CategoryMethod, oldType.Methods, newType.Methods)...)
	changes = append(changes, compareByName(name, CategoryProperty, oldType.Properties, newType.Properties)...)
	changes = append(changes, compareByName(name, CategoryField, oldType.Fields, newType.Fields)...)
	changes = append(changes, compareByName(name, CategoryEvent, oldType.Events, newType.Events)...)
	changes = append(changes, compareEnumValues(name, oldType.EnumValues, newType.EnumValues)...)
	return changes
}

// compareBySignature treats the formatted signature as identity, so a
// signature change shows up as one removal plus one addition.
func compareBySignature(typeName string, category Category, oldMembers, newMembers []model.MemberModel) []ApiChange {
	oldSet := make(map[string]bool, len(oldMembers))
	for _, m := range oldMembers {
		oldSet[m.Signature] = true
	}
	newSet := make(map[string]bool, len(newMembers))
	for _, m := range newMembers {
		newSet[m.Signature] = true
	}

	var changes []ApiChange
	for _, m := range oldMembers {
		if !newSet[m.Signature] {
			changes = append(changes, ApiChange{
				Kind:         Removed,
				Category:     category,
				TypeName:     typeName,
				OldSignature: m.Signature,
				Breaking:     true,
				Reason:       fmt.Sprintf("%s %s was removed from %s", category, m.Name, typeName),
			})
		}
	}
	for _, m := range newMembers {
		if !oldSet[m.Signature] {
			changes = append(changes, ApiChange{
				Kind:         Added,
				Category:     category,
				TypeName:     typeName,
				NewSignature: m.Signature,
				Breaking:     false,
				Reason:       fmt.Sprintf("%s %s was added to %s", category, m.Name, typeName),
			})
		}
	}
	return changes
}

// compareByName keys members by name; a surviving name whose signature
// changed is one modification carrying both signatures.
func compareByName(typeName string, category Category, oldMembers, newMembers []model.MemberModel) []ApiChange {
	oldByName := make(map[string]model.MemberModel, len(oldMembers))
	for _, m := range oldMembers {
		oldByName[m.Name] = m
	}
	newByName := make(map[string]model.MemberModel, len(newMembers))
	for _, m := range newMembers {
		newByName[m.Name] = m
	}

	var changes []ApiChange
	for _, m := range oldMembers {
		counterpart, ok := newByName[m.Name]
		switch {
		case !ok:
			changes = append(changes, ApiChange{
				Kind:         Removed,
				Category:     category,
				TypeName:     typeName,
				OldSignature: m.Signature,
				Breaking:     true,
				Reason:       fmt.Sprintf("%s %s was removed from %s", category, m.Name, typeName),
			})
		case counterpart.Signature != m.Signature:
			changes = append(changes, ApiChange{
				Kind:         Modified,
				Category:     category,
				TypeName:     typeName,
				OldSignature: m.Signature,
				NewSignature: counterpart.Signature,
				Breaking:     true,
				Reason:       fmt.Sprintf("%s %s of %s changed signature", category, m.Name, typeName),
			})
		}
	}
	for _, m := range newMembers {
		if _, ok := oldByName[m.Name]; !ok {
			changes = append(changes, ApiChange{
				Kind:         Added,
				Category:     category,
				TypeName:     typeName,
				NewSignature: m.Signature,
				Breaking:     false,
				Reason:       fmt.Sprintf("%s %s was added to %s", category, m.Name, typeName),
			})
		}
	}
	return changes
}

func compareEnumValues(typeName string, oldValues, newValues []model.EnumValueModel) []ApiChange {
	toMembers := func(values []model.EnumValueModel) []model.MemberModel {
		members := make([]model.MemberModel, len(values))
		for i, v := range values {
			members[i] = model.MemberModel{
				Name:      v.Name,
				Signature: fmt.Sprintf("%s = %d", v.Name, v.Value),
			}
		}
		return members
	}
	return compareByName(typeName, CategoryEnumValue, toMembers(oldValues), toMembers(newValues))
}

func sortChanges(changes []ApiChange) {
	rank := map[ChangeKind]int{Removed: 0, Modified: 1, Added: 2}
	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.TypeName != b.TypeName {
			return a.TypeName < b.TypeName
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Kind != b.Kind {
			return rank[a.Kind] < rank[b.Kind]
		}
		if a.OldSignature != b.OldSignature {
			return a.OldSignature < b.OldSignature
		}
		return a.NewSignature < b.NewSignature
	})
}
