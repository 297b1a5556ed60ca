package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin        = "join"
	MsgInput       = "input" // survivor movement intent
	MsgPose        = "pose"  // overseer head/hand tracking
	MsgPlaceBlock  = "place_block"
	MsgConvertRoom = "convert_room"
	MsgInteract    = "interact"
	MsgTimedStart  = "timed_start"
	MsgTimedCancel = "timed_cancel"
	MsgSleepResult = "sleep_result"
	MsgRevive      = "revive"
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth"
	MsgProfile     = "profile"
)

// Server -> Client message types
const (
	MsgJoined         = "joined"
	MsgPlayerJoined   = "player_joined"
	MsgPlayerLeft     = "player_left"
	MsgState          = "state" // binary msgpack StateUpdate
	MsgBlockPlaced    = "block_placed"
	MsgBlockFailed    = "block_failed"
	MsgRoomConverted  = "room_converted"
	MsgRoomFailed     = "room_convert_failed"
	MsgInteractOK     = "interact_success"
	MsgInteractFail   = "interact_fail"
	MsgTimedProgress  = "timed_progress"
	MsgTimedComplete  = "timed_complete"
	MsgTimedCancelled = "timed_cancelled"
	MsgPlayerDied     = "player_died"
	MsgPlayerRevived  = "player_revived"
	MsgQueuePosition  = "queue_position"
	MsgQueueReady     = "queue_ready"
	MsgQueueFailed    = "queue_failed"
	MsgWaitingState   = "waiting_state"
	MsgError          = "error"
	MsgAuthOK         = "auth_ok"
	MsgProfileData    = "profile_data"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the handler knows its type
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a client wants an avatar
type JoinMsg struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "survivor" (default) or "overseer"
}

// PoseMsg carries overseer tracking
type PoseMsg struct {
	Head  Pose `json:"head"`
	Left  Pose `json:"left"`
	Right Pose `json:"right"`
}

// PlaceBlockMsg asks to add a block to the grid
type PlaceBlockMsg struct {
	X     int    `json:"x"`
	Z     int    `json:"z"`
	Shape string `json:"shape"`
	Rot   int    `json:"rot"`
	Room  string `json:"room"`
}

// ConvertRoomMsg asks to change the room type of a block
type ConvertRoomMsg struct {
	X    int    `json:"x"`
	Z    int    `json:"z"`
	Room string `json:"room"`
}

// InteractMsg is a discrete or timed interaction request
type InteractMsg struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Pos    *Vec3  `json:"pos,omitempty"` // drop point
}

// SleepResultMsg reports the sleep mini-game score in [0,1]
type SleepResultMsg struct {
	Score float64 `json:"score"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with a password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg authenticates with a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// PlayerState is broadcast per visible player each network tick
type PlayerState struct {
	ID       string                 `json:"id" msgpack:"id"`
	Name     string                 `json:"n" msgpack:"n"`
	Kind     string                 `json:"k" msgpack:"k"`
	X        float64                `json:"x" msgpack:"x"`
	Y        float64                `json:"y" msgpack:"y"`
	Z        float64                `json:"z" msgpack:"z"`
	Yaw      float64                `json:"yaw" msgpack:"yaw"`
	Pitch    float64                `json:"pitch,omitempty" msgpack:"pitch,omitempty"`
	VX       float64                `json:"vx" msgpack:"vx"`
	VY       float64                `json:"vy" msgpack:"vy"`
	VZ       float64                `json:"vz" msgpack:"vz"`
	Grounded bool                   `json:"g" msgpack:"g"`
	State    string                 `json:"st" msgpack:"st"`
	Held     string                 `json:"held,omitempty" msgpack:"held,omitempty"`
	Needs    *Needs                 `json:"needs,omitempty" msgpack:"needs,omitempty"`
	Head     *Pose                  `json:"head,omitempty" msgpack:"head,omitempty"`
	Left     *Pose                  `json:"lh,omitempty" msgpack:"lh,omitempty"`
	Right    *Pose                  `json:"rh,omitempty" msgpack:"rh,omitempty"`
	Avail    []AvailableInteraction `json:"av,omitempty" msgpack:"av,omitempty"`
}

// AvailableInteraction is one action the player could perform right now
type AvailableInteraction struct {
	Type   string `json:"type" msgpack:"type"`
	Target string `json:"target" msgpack:"target"`
}

// ObjectState is broadcast per world object
type ObjectState struct {
	ID       string  `json:"id" msgpack:"id"`
	Kind     string  `json:"k" msgpack:"k"`
	Sub      string  `json:"sub,omitempty" msgpack:"sub,omitempty"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Z        float64 `json:"z" msgpack:"z"`
	R        float64 `json:"r" msgpack:"r"`
	Plant    string  `json:"plant,omitempty" msgpack:"plant,omitempty"`
	Stage    string  `json:"stage,omitempty" msgpack:"stage,omitempty"`
	Watered  bool    `json:"wet,omitempty" msgpack:"wet,omitempty"`
	Weeds    bool    `json:"weeds,omitempty" msgpack:"weeds,omitempty"`
	Occupant string  `json:"occ,omitempty" msgpack:"occ,omitempty"`
	Progress float64 `json:"prog,omitempty" msgpack:"prog,omitempty"`
	Holder   string  `json:"holder,omitempty" msgpack:"holder,omitempty"`
	Owner    string  `json:"owner,omitempty" msgpack:"owner,omitempty"`
}

// CellState is one grid cell on the wire
type CellState struct {
	X     int    `json:"x" msgpack:"x"`
	Z     int    `json:"z" msgpack:"z"`
	Block int    `json:"b" msgpack:"b"`
	Shape string `json:"s" msgpack:"s"`
	Rot   int    `json:"r" msgpack:"r"`
	Room  string `json:"room" msgpack:"room"`
	Group int    `json:"g" msgpack:"g"`
}

// WorldState is the grid geometry clients rebuild walls from
type WorldState struct {
	CellSize float64     `json:"cs" msgpack:"cs"`
	Cells    []CellState `json:"cells" msgpack:"cells"`
	Doorways []Doorway   `json:"doors" msgpack:"doors"`
}

// StateUpdate is the full state broadcast, tagged with the world version
type StateUpdate struct {
	Version uint64        `json:"v" msgpack:"v"`
	Tick    uint64        `json:"tick" msgpack:"tick"`
	Players []PlayerState `json:"p" msgpack:"p"`
	World   WorldState    `json:"w" msgpack:"w"`
	Objects []ObjectState `json:"o" msgpack:"o"`
}

// JoinedMsg confirms a join and carries the current snapshot
type JoinedMsg struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind"`
	State    string      `json:"state"`
	Snapshot StateUpdate `json:"snapshot"`
}

// PlayerEventMsg announces a join or leave
type PlayerEventMsg struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// FailMsg carries a rejection reason
type FailMsg struct {
	Reason string `json:"reason"`
}

// BlockPlacedMsg announces a grid growth
type BlockPlacedMsg struct {
	Cells   []CellCoord `json:"cells"`
	Shape   string      `json:"shape"`
	Rot     int         `json:"rot"`
	Room    string      `json:"room"`
	Version uint64      `json:"v"`
	By      string      `json:"by"`
}

// RoomConvertedMsg announces a room type change
type RoomConvertedMsg struct {
	Cells   []CellCoord `json:"cells"`
	From    string      `json:"from"`
	To      string      `json:"to"`
	Version uint64      `json:"v"`
	Removed int         `json:"removed"`
	Created int         `json:"created"`
}

// InteractResultMsg reports a successful interaction to its requester
type InteractResultMsg struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Held   string `json:"held,omitempty"`
}

// InteractFailMsg reports a rejected interaction
type InteractFailMsg struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// TimedMsg reports timed interaction progress or resolution
type TimedMsg struct {
	Type      string  `json:"type"`
	Target    string  `json:"target"`
	Progress  float64 `json:"progress"`
	Remaining int64   `json:"remainingMs"`
	Reason    string  `json:"reason,omitempty"`
}

// DiedMsg announces a death
type DiedMsg struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Cause string  `json:"cause"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Body  string  `json:"body"`
}

// RevivedMsg announces a return from the waiting area
type RevivedMsg struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// QueuePositionMsg tells a queued player where they stand
type QueuePositionMsg struct {
	Position int `json:"position"`
	Length   int `json:"length"`
}

// QueueReadyMsg tells the head of the queue the door is open
type QueueReadyMsg struct {
	WindowMs int64 `json:"windowMs"`
}

// WaitingStateMsg is sent each network tick to every queued player
type WaitingStateMsg struct {
	CooldownMs      int64 `json:"cooldownMs"`
	Position        int   `json:"position"`
	Length          int   `json:"length"`
	DoorOpen        bool  `json:"doorOpen"`
	JoinRemainingMs int64 `json:"joinRemainingMs"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg carries survival statistics
type ProfileDataMsg struct {
	Username     string  `json:"username"`
	Deaths       int     `json:"deaths"`
	Hunger       int     `json:"deathsHunger"`
	Thirst       int     `json:"deathsThirst"`
	Exhaustion   int     `json:"deathsRest"`
	Survived     float64 `json:"survived"`
	LongestLife  float64 `json:"longestLife"`
	BlocksPlaced int     `json:"blocksPlaced"`
	MealsEaten   int     `json:"mealsEaten"`
}
