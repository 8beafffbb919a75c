package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/models"
)

const dateLayout = "02/01/2006 15:04:05"

// ReportService renders the flat semicolon-delimited voting report. UTF-8 BOM
// up front so spreadsheet tools pick the encoding.
type ReportService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReportService(db *gorm.DB, log *zap.Logger) *ReportService {
	return &ReportService{db: db, log: log}
}

type reportParticipant struct {
	Nome         string
	CPF          string
	Municipio    *string
	Peso         *float64
	Presente     bool
	DataPresenca *time.Time
}

type reportVote struct {
	Municipio  string
	Votante    string
	CPF        string
	Voto       string
	VotoNumero int
	Peso       float64
	DataHora   time.Time
}

// Build produces the report body and a filename derived from the title.
func (s *ReportService) Build(eventoID uint) (filename string, body []byte, err error) {
	var evento models.Evento
	err = s.db.Preload("Criador").First(&evento, eventoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, models.ErrEventoNaoEncontrado
	}
	if err != nil {
		return "", nil, err
	}

	var participantes []reportParticipant
	err = s.db.Model(&models.Participante{}).
		Select("users.nome, users.cpf, municipios.nome AS municipio, municipios.peso, participantes.presente, participantes.data_presenca").
		Joins("JOIN users ON users.id = participantes.user_id").
		Joins("LEFT JOIN municipios ON municipios.id = users.municipio_id").
		Where("participantes.evento_id = ?", eventoID).
		Order("municipios.nome, users.nome").
		Scan(&participantes).Error
	if err != nil {
		return "", nil, err
	}

	var votos []reportVote
	err = s.db.Model(&models.Voto{}).
		Select("municipios.nome AS municipio, users.nome AS votante, users.cpf, votos.voto, votos.voto_numero, votos.peso, votos.data_hora").
		Joins("JOIN users ON users.id = votos.user_id").
		Joins("JOIN municipios ON municipios.id = votos.municipio_id").
		Where("votos.evento_id = ?", eventoID).
		Order("municipios.nome, votos.voto_numero, votos.data_hora").
		Scan(&votos).Error
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("\ufeff")
	b.WriteString("RELATORIO DE VOTACAO\n\n")

	descricao := evento.Descricao
	if descricao == "" {
		descricao = "N/A"
	}
	multipla := "Nao"
	if evento.VotacaoMultipla {
		multipla = fmt.Sprintf("Sim (Max: %d)", evento.VotosMaximos)
	}
	criador := "N/A"
	if evento.Criador != nil {
		criador = evento.Criador.Nome
	}

	fmt.Fprintf(&b, "Titulo;%s\n", field(evento.Titulo))
	fmt.Fprintf(&b, "Descricao;%s\n", field(descricao))
	fmt.Fprintf(&b, "Tipo de Votacao;%s\n", evento.TipoVotacao)
	fmt.Fprintf(&b, "Votacao Multipla;%s\n", multipla)
	if opcoes := evento.Opcoes(); len(opcoes) > 0 {
		fmt.Fprintf(&b, "Opcoes de Votacao;%s\n", field(strings.Join(opcoes, ", ")))
	}
	fmt.Fprintf(&b, "Status;%s\n", evento.Status)
	fmt.Fprintf(&b, "Data Inicio;%s\n", evento.DataInicio.Format(dateLayout))
	fmt.Fprintf(&b, "Data Fim;%s\n", evento.DataFim.Format(dateLayout))
	fmt.Fprintf(&b, "Quorum Minimo (Peso);%.0f%%\n", evento.PesoMinimoQuorum)
	fmt.Fprintf(&b, "Criado por;%s\n", field(criador))
	fmt.Fprintf(&b, "Data de Geracao;%s\n\n", time.Now().Format(dateLayout))

	b.WriteString("PARTICIPANTES\n")
	b.WriteString("Nome;CPF;Municipio;Peso;Presente;Data Presenca\n")
	for _, p := range participantes {
		municipio, peso, presenca := "N/A", "N/A", "N/A"
		if p.Municipio != nil {
			municipio = *p.Municipio
		}
		if p.Peso != nil {
			peso = fmt.Sprintf("%.2f", *p.Peso)
		}
		if p.DataPresenca != nil {
			presenca = p.DataPresenca.Format(dateLayout)
		}
		fmt.Fprintf(&b, "%s;%s;%s;%s;%s;%s\n",
			field(p.Nome), p.CPF, field(municipio), peso, simNao(p.Presente), presenca)
	}
	b.WriteString("\n")

	b.WriteString("VOTOS REGISTRADOS\n")
	b.WriteString("Municipio;Votante;CPF;Voto;Numero do Voto;Peso;Data/Hora\n")
	for _, v := range votos {
		fmt.Fprintf(&b, "%s;%s;%s;%s;%d;%.2f;%s\n",
			field(v.Municipio), field(v.Votante), v.CPF, field(v.Voto),
			v.VotoNumero, v.Peso, v.DataHora.Format(dateLayout))
	}
	b.WriteString("\n")

	porMunicipio := map[string][]string{}
	pesoMunicipio := map[string]float64{}
	for _, v := range votos {
		porMunicipio[v.Municipio] = append(porMunicipio[v.Municipio], v.Voto)
		pesoMunicipio[v.Municipio] = v.Peso
	}
	municipios := make([]string, 0, len(porMunicipio))
	for m := range porMunicipio {
		municipios = append(municipios, m)
	}
	sort.Strings(municipios)

	b.WriteString("RESUMO DE VOTOS POR MUNICIPIO\n")
	b.WriteString("Municipio;Votos;Quantidade de Votos;Peso Total\n")
	for _, m := range municipios {
		fmt.Fprintf(&b, "%s;%s;%d;%.2f\n",
			field(m), field(strings.Join(porMunicipio[m], " | ")),
			len(porMunicipio[m]), pesoMunicipio[m])
	}
	b.WriteString("\n")

	contagem := map[string]int{}
	for _, v := range votos {
		contagem[v.Voto]++
	}
	opcoes := make([]string, 0, len(contagem))
	for o := range contagem {
		opcoes = append(opcoes, o)
	}
	sort.Strings(opcoes)

	b.WriteString("CONTAGEM POR OPCAO\n")
	b.WriteString("Opcao;Quantidade de Votos;Percentual\n")
	for _, o := range opcoes {
		pct := 0.0
		if len(votos) > 0 {
			pct = float64(contagem[o]) / float64(len(votos)) * 100
		}
		fmt.Fprintf(&b, "%s;%d;%.2f%%\n", field(o), contagem[o], pct)
	}
	b.WriteString("\n")

	presentes := 0
	pesoRoster := 0.0
	for _, p := range participantes {
		if p.Presente {
			presentes++
		}
		if p.Peso != nil {
			pesoRoster += *p.Peso
		}
	}
	pesoVotado := 0.0
	for _, m := range municipios {
		pesoVotado += pesoMunicipio[m]
	}
	participacao := 0.0
	if pesoRoster > 0 {
		participacao = pesoVotado / pesoRoster * 100
	}

	b.WriteString("ESTATISTICAS GERAIS\n")
	fmt.Fprintf(&b, "Total de Participantes Cadastrados;%d\n", len(participantes))
	fmt.Fprintf(&b, "Total de Presentes;%d\n", presentes)
	fmt.Fprintf(&b, "Total de Municipios que Votaram;%d\n", len(municipios))
	fmt.Fprintf(&b, "Total de Votos Registrados;%d\n", len(votos))
	fmt.Fprintf(&b, "Peso Total dos Votos;%.2f\n", pesoVotado)
	fmt.Fprintf(&b, "Peso Total dos Participantes;%.2f\n", pesoRoster)
	fmt.Fprintf(&b, "Percentual de Participacao (Peso);%.2f%%\n", participacao)

	return reportFilename(evento.Titulo), []byte(b.String()), nil
}

// field keeps the delimiter and record structure intact for free-text cells.
func field(s string) string {
	s = strings.ReplaceAll(s, ";", ",")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}

func simNao(v bool) string {
	if v {
		return "Sim"
	}
	return "Nao"
}

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func reportFilename(titulo string) string {
	slug := filenameUnsafe.ReplaceAllString(strings.ReplaceAll(titulo, " ", "_"), "")
	if slug == "" {
		slug = "evento"
	}
	return fmt.Sprintf("votacao_%s_%s.csv", slug, time.Now().Format("2006-01-02"))
}
