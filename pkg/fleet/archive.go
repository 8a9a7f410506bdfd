package fleet

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/lithammer/shortuuid/v4"

	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
)

// archive exports the stopped session's transcripts as one JSON object per
// session. Runs in the background; failures are logged, never fatal, and
// the export is an artifact, not recoverable state.
func (s *service) archive(sessionKey string, snapshots map[string][]talktime.Utterance) {
	uploader := s.getUploader()
	if uploader == nil || len(snapshots) == 0 {
		return
	}

	body, err := json.Marshal(snapshots)
	if err != nil {
		log.Errorf("cannot marshal transcript archive | session: %s, error: %v", sessionKey, err)
		return
	}

	key := fmt.Sprintf("%s/%s.json", sessionKey, shortuuid.New())
	if err := uploader.Upload(key, bytes.NewReader(body)); err != nil {
		log.Errorf("cannot upload transcript archive | session: %s, key: %s, error: %v", sessionKey, key, err)
		return
	}
	log.Infof("archived transcripts | session: %s, key: %s, bots: %d", sessionKey, key, len(snapshots))
}
