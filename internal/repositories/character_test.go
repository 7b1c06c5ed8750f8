package repositories

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
)

func newTestCharacterRepo(t *testing.T) (*CharacterRepository, string) {
	t.Helper()
	root := t.TempDir()
	repo := NewCharacterRepository(
		filepath.Join(root, "characters"),
		filepath.Join(root, "chats"),
		filepath.Join(root, "thumbnails"),
	)
	return repo, root
}

func testCard() *models.Character {
	return &models.Character{
		Name:          "Zoe",
		Description:   "A wandering cartographer.",
		Personality:   "curious",
		Scenario:      "a dusty library",
		FirstMes:      "Hello, traveler.",
		MesExample:    "<START>",
		Creator:       "tester",
		Tags:          []string{"adventure"},
		Talkativeness: 0.5,
		AlternateGreetings: []string{
			"Oh! A visitor.",
		},
	}
}

func TestCharacterSaveAndFind(t *testing.T) {
	repo, _ := newTestCharacterRepo(t)

	character := testCard()
	if err := repo.Save(character); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := repo.FindByName("Zoe")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if loaded.Name != "Zoe" || loaded.Description != character.Description {
		t.Errorf("card mismatch: %+v", loaded)
	}
	if loaded.FileName != "Zoe" {
		t.Errorf("FileName = %q", loaded.FileName)
	}
}

func TestCharacterFindMissing(t *testing.T) {
	repo, _ := newTestCharacterRepo(t)
	if _, err := repo.FindByName("Nobody"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCharacterCardRoundTripStable(t *testing.T) {
	repo, root := newTestCharacterRepo(t)
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(root, "characters", "Zoe.png")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	character, err := DecodeCharacterCard(first)
	if err != nil {
		t.Fatal(err)
	}
	second, err := EmbedCharacterCard(first, character)
	if err != nil {
		t.Fatal(err)
	}

	cardA, err := DecodeCharacterCard(first)
	if err != nil {
		t.Fatal(err)
	}
	cardB, err := DecodeCharacterCard(second)
	if err != nil {
		t.Fatal(err)
	}
	rawA, _ := json.Marshal(cardA)
	rawB, _ := json.Marshal(cardB)
	if !bytes.Equal(rawA, rawB) {
		t.Errorf("card JSON changed across write→read→write:\n%s\n%s", rawA, rawB)
	}
}

func TestCharacterImportCollision(t *testing.T) {
	repo, root := newTestCharacterRepo(t)

	// Build a card PNG on disk to import from.
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(root, "import", "Zoe.png")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "characters", "Zoe.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(source, data, 0o644); err != nil {
		t.Fatal(err)
	}
	// Clear the pre-existing character so the first import takes the stem.
	if err := repo.Delete("Zoe"); err != nil {
		t.Fatal(err)
	}

	first, err := repo.Import(source, false)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if first.FileName != "Zoe" {
		t.Errorf("first stem = %q", first.FileName)
	}
	second, err := repo.Import(source, false)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if second.FileName != "Zoe_1" {
		t.Errorf("second stem = %q", second.FileName)
	}

	cardA, err := repo.FindByName("Zoe")
	if err != nil {
		t.Fatal(err)
	}
	cardB, err := repo.FindByName("Zoe_1")
	if err != nil {
		t.Fatal(err)
	}
	cardA.FileName, cardB.FileName = "", ""
	cardA.Avatar, cardB.Avatar = "", ""
	cardA.DateAdded, cardB.DateAdded = 0, 0
	if !reflect.DeepEqual(cardA, cardB) {
		t.Errorf("imported cards differ:\n%+v\n%+v", cardA, cardB)
	}
}

func TestCharacterImportJSON(t *testing.T) {
	repo, root := newTestCharacterRepo(t)
	source := filepath.Join(root, "card.json")
	raw := `{"spec":"chara_card_v2","spec_version":"2.0","data":{"name":"Mira","description":"from json"}}`
	if err := os.WriteFile(source, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	character, err := repo.Import(source, false)
	if err != nil {
		t.Fatalf("JSON import failed: %v", err)
	}
	if character.Name != "Mira" {
		t.Errorf("name = %q", character.Name)
	}
	loaded, err := repo.FindByName(character.FileName)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Description != "from json" {
		t.Errorf("description = %q", loaded.Description)
	}
}

func TestCharacterRename(t *testing.T) {
	repo, _ := newTestCharacterRepo(t)
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}
	renamed, err := repo.Rename("Zoe", "Zoe Prime")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.FileName != "Zoe Prime" || renamed.Name != "Zoe Prime" {
		t.Errorf("rename result: %+v", renamed)
	}
	if _, err := repo.FindByName("Zoe"); !domain.IsNotFound(err) {
		t.Errorf("old stem should be gone, got %v", err)
	}
}

func TestCharacterExportBitExact(t *testing.T) {
	repo, root := newTestCharacterRepo(t)
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "exported.png")
	if err := repo.Export("Zoe", target); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	original, err := os.ReadFile(filepath.Join(root, "characters", "Zoe.png"))
	if err != nil {
		t.Fatal(err)
	}
	exported, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, exported) {
		t.Error("export is not bit-exact")
	}
}

func TestUpdateAvatarResizesTo400x600(t *testing.T) {
	repo, root := newTestCharacterRepo(t)
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}

	src := imaging.New(1000, 1000, image.White.C)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		t.Fatal(err)
	}

	crop := &AvatarCrop{X: 100, Y: 100, Width: 5000, Height: 5000} // clamped to source bounds
	if err := repo.UpdateAvatar("Zoe", buf.Bytes(), crop); err != nil {
		t.Fatalf("UpdateAvatar failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "characters", "Zoe.png"))
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 600 {
		t.Errorf("avatar size = %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	// The card survives the re-encode.
	character, err := DecodeCharacterCard(data)
	if err != nil {
		t.Fatalf("card lost after avatar update: %v", err)
	}
	if character.Name != "Zoe" {
		t.Errorf("card name = %q", character.Name)
	}
}

func TestFindAllShallow(t *testing.T) {
	repo, _ := newTestCharacterRepo(t)
	for _, name := range []string{"Alpha", "Beta"} {
		card := testCard()
		card.Name = name
		card.FileName = name
		if err := repo.Save(card); err != nil {
			t.Fatal(err)
		}
	}
	characters, err := repo.FindAll(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(characters) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(characters))
	}
	if characters[0].Name != "Alpha" || characters[1].Name != "Beta" {
		t.Errorf("order/name mismatch: %v, %v", characters[0].Name, characters[1].Name)
	}
	if characters[0].Description != "" {
		t.Errorf("shallow listing should skip body fields, got %q", characters[0].Description)
	}
}

func TestDeleteCharacter(t *testing.T) {
	repo, _ := newTestCharacterRepo(t)
	if err := repo.Save(testCard()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete("Zoe"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete("Zoe"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
}
