package model

// Itinerary describes one cruise offering from the static catalog. The
// catalog is loaded once at startup and itineraries are never deleted; only
// AvailableCabins changes, and only through the inventory service's event
// consumption path.
//
// Fields:
//  ID              – stable catalog identifier, the canonical key for every
//                    reservation path.
//  Destination     – marketed destination region.
//  Ship            – vessel operating the cruise.
//  Departure       – boarding date in ISO form (YYYY-MM-DD).
//  Arrival         – return date in ISO form.
//  BoardingPort    – port of embarkation.
//  Stops           – intermediate ports of call.
//  Nights          – cruise length in nights.
//  Price           – price per passenger.
//  TotalCabins     – fixed cabin capacity.
//  AvailableCabins – cabins still free; 0 <= AvailableCabins <= TotalCabins
//                    must hold after any sequence of applied events.
type Itinerary struct {
	ID              int64    `json:"id"`
	Destination     string   `json:"destination"`
	Ship            string   `json:"ship"`
	Departure       string   `json:"departure"`
	Arrival         string   `json:"arrival"`
	BoardingPort    string   `json:"boarding_port"`
	Stops           []string `json:"stops"`
	Nights          int      `json:"nights"`
	Price           float64  `json:"price"`
	TotalCabins     int      `json:"total_cabins"`
	AvailableCabins int      `json:"available_cabins"`
}
