package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type menuFile struct {
	Items []Item `json:"items" yaml:"items"`
}

// FileSource читает меню из YAML или JSON файла.
// Файл перечитывается при каждом Fetch, так что правки подхватываются по /reload.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (fs *FileSource) Fetch(ctx context.Context) ([]Item, error) {
	items, err := ParseMenuFile(fs.Path)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("Loaded %d menu items from %s", len(items), fs.Path)
	return items, nil
}

// ParseMenuFile парсит файл меню. Формат определяется по расширению.
func ParseMenuFile(filename string) ([]Item, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open menu file")
	}

	var menu menuFile
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &menu)
	case ".json":
		err = json.Unmarshal(data, &menu)
	default:
		return nil, errors.Errorf("unsupported menu file format: %s", filename)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing menu file %s", filename)
	}

	if len(menu.Items) == 0 {
		return nil, errors.New("no menu items found in file")
	}

	return menu.Items, nil
}

// DefaultItems - меню по умолчанию
func DefaultItems() []Item {
	return []Item{
		{Name: "Цезар з куркою", Category: "Салати", Price: 189, Weight: 200, Ingredients: []string{"Куряче філе", "Романо", "Пармезан"}},
		{Name: "Грецький салат", Category: "Салати", Price: 159, Weight: 250, Ingredients: []string{"Фета", "Огірок", "Маслини"}},
		{Name: "Плов", Category: "Гарячі страви", Price: 169, Weight: 300, Ingredients: []string{"Рис", "Баранина", "Морква"}},
		{Name: "Борщ", Category: "Супи", Price: 109, Weight: 350, Ingredients: []string{"Буряк", "Капуста", "Сметана"}},
		{Name: "Вареники з картоплею", Category: "Гарячі страви", Price: 119, Weight: 280, Ingredients: []string{"Картопля", "Цибуля"}},
		{Name: "Сирники", Category: "Десерти", Price: 129, Weight: 220, Ingredients: []string{"Сир кисломолочний", "Яйце", "Сметана"}},
		{Name: "Деруни", Category: "Гарячі страви", Price: 139, Weight: 260, Ingredients: []string{"Картопля", "Сметана"}},
		{Name: "Бограч", Category: "Супи", Price: 149, Weight: 400, Ingredients: []string{"Яловичина", "Паприка", "Картопля"}},
	}
}
