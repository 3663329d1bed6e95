package events_test

import (
	"testing"

	"github.com/checoin/checoin/foundation/events"
	"github.com/google/uuid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out node events to subscribers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen subscribers use different prefixes.", testID)
		{
			evts := events.New()

			allID, all := evts.Subscribe("")
			_, blocks := evts.Subscribe("viewer:")

			if evts.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have two subscribers.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have two subscribers.", success, testID)

			evts.Send("state: MintNextBlock: started")
			evts.Send("viewer: block: {}")

			if len(all) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould deliver every event to an empty prefix, got %d.", failed, testID, len(all))
			}
			t.Logf("\t%s\tTest %d:\tShould deliver every event to an empty prefix.", success, testID)

			if len(blocks) != 1 || <-blocks != "viewer: block: {}" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver only matching events.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver only matching events.", success, testID)

			if err := evts.Unsubscribe(allID); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unsubscribe: %v", failed, testID, err)
			}
			<-all
			<-all
			if _, open := <-all; open {
				t.Fatalf("\t%s\tTest %d:\tShould close the channel on unsubscribe.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close the channel on unsubscribe.", success, testID)

			if err := evts.Unsubscribe(uuid.New()); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to unsubscribe an unknown id.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to unsubscribe an unknown id.", success, testID)

			evts.Shutdown()
			if _, open := <-blocks; open || evts.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould close every channel on shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close every channel on shutdown.", success, testID)
		}
	}

	t.Log("Given the need to never block the sender.")
	{
		testID := 1
		t.Logf("\tTest %d:\tWhen a subscriber does not read.", testID)
		{
			evts := events.New()
			_, ch := evts.Subscribe("")

			for range 150 {
				evts.Send("event")
			}

			if len(ch) != cap(ch) {
				t.Fatalf("\t%s\tTest %d:\tShould drop events once the buffer is full.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould drop events once the buffer is full.", success, testID)
		}
	}
}
