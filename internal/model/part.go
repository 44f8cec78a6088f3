package model

// Part is a gradable unit within a lab.
type Part struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PartStatus is the latest signoff status recorded for a part.
type PartStatus struct {
	PartID uint          `json:"part_id"`
	Status SignoffStatus `json:"status"`
}
