package registry

import (
	"sort"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/protocol"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/room"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// message 信箱訊息
type message interface {
	isMessage()
}

type connectMsg struct {
	id   string
	sink Sink
}

type disconnectMsg struct {
	id string
}

type routeMsg struct {
	id     string
	room   string
	intent protocol.Intent
}

type frameMsg struct {
	res  room.TickResult
	done chan struct{}
}

type statsMsg struct {
	reply chan Stats
}

type roomsMsg struct {
	reply chan []room.Info
}

type roomReply struct {
	info room.Info
	ok   bool
}

type roomMsg struct {
	name  string
	reply chan roomReply
}

func (connectMsg) isMessage()    {}
func (disconnectMsg) isMessage() {}
func (routeMsg) isMessage()      {}
func (frameMsg) isMessage()      {}
func (statsMsg) isMessage()      {}
func (roomsMsg) isMessage()      {}
func (roomMsg) isMessage()       {}

// run 信箱處理迴圈，註冊中心所有狀態只在這裡變動
func (r *Registry) run(reporterDone <-chan struct{}) {
	defer close(r.done)

	for {
		select {
		case m := <-r.mailbox:
			r.handle(m)
		case <-r.quit:
			r.shutdown()
			close(r.reports)
			<-reporterDone
			return
		}
	}
}

func (r *Registry) handle(m message) {
	switch m := m.(type) {
	case connectMsg:
		r.handleConnect(m)
	case disconnectMsg:
		r.handleDisconnect(m.id)
	case routeMsg:
		r.handleRoute(m)
	case frameMsg:
		r.handleFrame(m)
	case statsMsg:
		m.reply <- r.snapshotStats()
	case roomsMsg:
		m.reply <- r.snapshotRooms()
	case roomMsg:
		rm, ok := r.rooms[m.name]
		if !ok {
			m.reply <- roomReply{}
			return
		}
		m.reply <- roomReply{info: rm.Snapshot(), ok: true}
	}
}

func (r *Registry) handleConnect(m connectMsg) {
	r.sinks[m.id] = m.sink
	r.conns[m.id] = &connState{chat: r.opts.ChatRoom}
	r.subscribe(m.id, r.opts.ChatRoom)
	r.logger.Info("connection registered", "conn_id", m.id, "connections", len(r.sinks))
}

func (r *Registry) handleDisconnect(id string) {
	cs, ok := r.conns[id]
	if !ok {
		return
	}

	delete(r.sinks, id)
	delete(r.conns, id)
	r.unsubscribe(id, cs.chat)
	if cs.game != "" {
		r.leaveGame(id, cs.game)
	}
	r.logger.Info("connection removed", "conn_id", id, "connections", len(r.sinks))
}

func (r *Registry) handleRoute(m routeMsg) {
	cs, ok := r.conns[m.id]
	if !ok {
		r.logger.Debug("message from unknown connection", "conn_id", m.id)
		return
	}

	switch in := m.intent.(type) {
	case protocol.Join:
		r.join(m.id, cs, in.Room)

	case protocol.Move:
		name := m.room
		if name == "" {
			name = cs.game
		}
		rm, ok := r.rooms[name]
		if !ok {
			r.logger.Debug("move ignored, no such room", "conn_id", m.id, "room", name)
			return
		}
		rm.HandleMove(m.id, in.Command)

	case protocol.Chat:
		name := m.room
		if name == "" {
			name = cs.chat
		}
		r.broadcastChat(name, in.Payload)
	}
}

// join 切換聊天室、離開先前的遊戲房間，再讓連線入座（必要時建立房間）
func (r *Registry) join(id string, cs *connState, name string) {
	if cs.game != "" && cs.game != name {
		r.leaveGame(id, cs.game)
		cs.game = ""
	}
	r.moveChat(id, cs, name)

	rm, ok := r.rooms[name]
	if ok && rm.State().Terminal() {
		r.closeRoom(rm, nil)
		ok = false
	}
	if !ok {
		rm = room.New(name, r, r.opts.Room, r.logger)
		r.rooms[name] = rm
		r.active[rm] = struct{}{}
		r.logger.Info("room created", "room", name, "state", rm.State())
		r.reportStarted(name)
	}

	if err := rm.TryJoin(id); err != nil {
		if apperrors.IsRoomFull(err) {
			r.logger.Info("room full, connection stays in chat", "conn_id", id, "room", name)
		}
		return
	}
	cs.game = name
}

// leaveGame 讓連線離開遊戲房間；房間變空時拆除
func (r *Registry) leaveGame(id, name string) {
	rm, ok := r.rooms[name]
	if !ok {
		return
	}
	if _, empty := rm.Disconnect(id); empty {
		r.logger.Info("room empty", "room", name)
		r.closeRoom(rm, nil)
	}
}

func (r *Registry) handleFrame(m frameMsg) {
	defer close(m.done)

	res := m.res
	rm, ok := r.rooms[res.Name]
	if !ok || rm != res.Room {
		r.logger.Debug("stale frame dropped", "room", res.Name, "tick", res.Tick)
		return
	}

	data, err := protocol.EncodeFrame(res.Frame)
	if err != nil {
		r.logger.Error("encode frame failed", "room", res.Name, "error", err)
	}

	empty := false
	for _, id := range res.Slots {
		if id == "" {
			continue
		}
		sink, ok := r.sinks[id]
		if !ok {
			r.logger.Warn("seated connection gone, clearing slot", "room", res.Name, "conn_id", id)
			if _, e := rm.Disconnect(id); e {
				empty = true
			}
			continue
		}
		if data == nil {
			continue
		}
		if sink.Send(data) {
			r.stats.FramesSent++
		} else {
			r.stats.FramesDropped++
			r.logger.Debug("frame dropped, send buffer full", "room", res.Name, "conn_id", id)
		}
	}

	switch {
	case res.Err != nil && apperrors.IsInvariant(res.Err):
		r.logger.Error("invariant violated, room aborted", "room", res.Name, "error", res.Err)
		r.closeRoom(rm, res.Err)
	case res.Err != nil:
		r.logger.Error("room aborted", "room", res.Name, "error", res.Err)
		r.closeRoom(rm, res.Err)
	case res.State.Terminal():
		r.logger.Info("game over", "room", res.Name, "state", res.State, "score", res.Score)
		r.closeRoom(rm, nil)
	case empty:
		r.logger.Info("all players unreachable, game inactive", "room", res.Name)
		r.closeRoom(rm, nil)
	}
}

// closeRoom 拆除房間；若仍登記為進行中的遊戲則回報結果
//
// 同名房間之後再被 Join 時會重新建立。
func (r *Registry) closeRoom(rm *room.Room, cause error) {
	name := rm.Name()
	before := rm.Snapshot()
	rm.Close()

	if r.rooms[name] == rm {
		delete(r.rooms, name)
	}
	for _, id := range before.Slots {
		if cs, ok := r.conns[id]; ok && cs.game == name {
			cs.game = ""
		}
	}

	if _, ok := r.active[rm]; !ok {
		return
	}
	delete(r.active, rm)
	r.stats.GamesFinished++
	r.reportFinished(rm.Snapshot(), before, cause)
}

// shutdown 關閉所有房間
func (r *Registry) shutdown() {
	for _, rm := range r.rooms {
		r.closeRoom(rm, nil)
	}
	r.logger.Info("registry stopped", "connections", len(r.sinks))
}

func (r *Registry) subscribe(id, chat string) {
	members, ok := r.chatRooms[chat]
	if !ok {
		members = make(map[string]struct{})
		r.chatRooms[chat] = members
	}
	members[id] = struct{}{}
}

func (r *Registry) unsubscribe(id, chat string) {
	members, ok := r.chatRooms[chat]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.chatRooms, chat)
	}
}

func (r *Registry) moveChat(id string, cs *connState, chat string) {
	if cs.chat == chat {
		return
	}
	r.unsubscribe(id, cs.chat)
	r.subscribe(id, chat)
	cs.chat = chat
}

// broadcastChat 轉送給聊天室所有成員（包含發送者）
func (r *Registry) broadcastChat(chat string, payload []byte) {
	for id := range r.chatRooms[chat] {
		sink, ok := r.sinks[id]
		if !ok {
			continue
		}
		if !sink.Send(payload) {
			r.logger.Debug("chat dropped, send buffer full", "room", chat, "conn_id", id)
		}
	}
}

func (r *Registry) snapshotStats() Stats {
	s := r.stats
	s.Connections = len(r.sinks)
	s.Rooms = len(r.rooms)
	s.ActiveGames = len(r.active)
	s.ChatRooms = len(r.chatRooms)
	return s
}

func (r *Registry) snapshotRooms() []room.Info {
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]room.Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, r.rooms[name].Snapshot())
	}
	return infos
}
